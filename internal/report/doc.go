// Package report writes prediction results for the command line.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown for sharing and documentation
//
// Writers implement the Writer interface and can be combined with
// MultiWriter. SavePlots writes the SHAP explanation images attached
// to a result as PNG files.
package report
