// Package report renders coverage runs.
//
// Summary writers print a model.CoverageSummary after generation:
//   - SimpleWriter: human-readable text for the terminal
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown with a mermaid pie chart
//
// HTMLWriter produces the built-in index.html report from parsed .gcov
// listings when lcov is not installed. ReadHTMLSummary reads the title and
// headline back from either that report or genhtml output.
//
// Writers implement the Writer interface, so they can be composed with
// MultiWriter.
package report
