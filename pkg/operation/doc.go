/*
Package operation drives files and streams through a matcher and decides
what happens to the result.

	+-------------+
	|   Runner    |
	| (paths, -)  |
	+------+------+
	       |
	+------+------+      +-----------+
	|   Driver    | ---> |  Matcher  |
	| (per file)  |      | (match)   |
	+------+------+      +-----------+
	       |
	+------+------+
	|   staging   |
	| (commit)    |
	+-------------+

🎯 Purpose:
- Picks the matcher once, from the mode
- Routes output: staging file, standard output, or nowhere
- Validates byte-mode output size against the match count
- Commits only modified files, discards everything else

🔄 Flow for one file:
1. Resolve the path and ask the Guard
2. Count-only: scan, report, done (the file is only read)
3. Otherwise scan into a staging file next to the target
4. Check output = input + count × (len(replacement) − len(pattern))
5. Modified: copy metadata and rename; unmodified: discard

⚡ Failure model:
The rename is the last step. Any error before it, including a process
being killed, leaves the original untouched. Retrying is re-running.

🔍 Example:

	d, err := operation.New(operation.Options{
		Pattern:     match.MustPattern("foo"),
		Replacement: match.NewReplacement([]byte("bar")),
	})
	if err != nil {
		return err
	}
	res, err := d.ProcessFile(ctx, "notes.txt")
*/
package operation
