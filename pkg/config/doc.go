/*
Package config loads the optional project settings for replace-text.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Keeps per-project defaults (mode, exclude globs, protected paths)
- Rejects unknown keys in every format
- Never carries the match or replacement values

🔄 Flow:
1. Find uses --config, or the first .replace-text.{yaml,yml,hcl,json}
2. GetParser picks a parser by file extension
3. Validate fills defaults and checks the globs
4. The command applies flags on top

🔍 Example:

	cfg, err := config.Find(ctx, ".", "")
	if err != nil {
		return err
	}
	fmt.Println(cfg)

HCL files can read the environment:

	protected_paths = ["${env.HOME}/bin/**"]
*/
package config
