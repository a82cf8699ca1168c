/*
Package match implements the two scanning strategies used by replace-text.

	+----------+     +-----------------+     +--------+
	|  input   | --> |     Matcher     | --> | output |
	| (reader) |     | bytes | text    |     | (sink) |
	+----------+     +-----------------+     +--------+

🪟 ByteMatcher:
- Binary safe, works on any input
- Window sized to the pattern, compared once full
- A match with a replacement empties the window, so replacement bytes
  are never scanned again
- A partial window at end of input is flushed, never compared

📜 LineMatcher:
- Splits on LF, CRLF and CR, keeping each terminator
- Lines must be valid UTF-8 (DecodeError otherwise)
- Counts lines containing the pattern

🔍 Example:

	m, err := match.New(match.ModeBytes, match.Options{
		Pattern:     match.MustPattern("foo"),
		Replacement: match.NewReplacement([]byte("X")),
	})
	if err != nil {
		return err
	}
	rep, err := m.Scan(ctx, strings.NewReader("foobarfoobaz"), &buf)
	// buf: "XbarXbaz", rep.Count: 2, rep.Modified: true
*/
package match
