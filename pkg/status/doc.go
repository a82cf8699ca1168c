/*
Package status tracks what happened to every target of a run and formats
the reports.

	            +-------------+
	            |   Manager   |
	            | (per file)  |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +----+----+
	| Formatter |           |  Table  |
	| (lines)   |           | (pterm) |
	+-----------+           +---------+

🎯 Purpose:
- Maps driver results to a FileStatus
- Keeps results in the order they were tracked
- Formats the "<count> <path>" report line
- Renders an end-of-run summary table

🔄 Flow:
1. StartOperation with the number of targets
2. TrackResult or TrackError per target, from any goroutine
3. Summary and RenderTable once the run is over

🔍 Example:

	m := status.New(nil)
	m.StartOperation(ctx, len(paths))
	info := m.TrackResult(ctx, res, operation.ActionReplace, false)
	fmt.Fprintln(os.Stderr, m.Formatter().FormatReport(info))
*/
package status
