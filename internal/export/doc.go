// Package export renders a CodeAnalysis as JSON, Markdown, PDF or plain
// text.
//
// [Export] produces a [Result] holding the rendered bytes and a timestamped
// filename; [WriteResult] saves it to disk. Severity and type filters narrow
// the listed issues, while the summary always describes the full analysis.
// PDF output is laid out on A4 with 20 mm margins and starts a new page
// whenever the cursor passes the bottom margin.
package export
