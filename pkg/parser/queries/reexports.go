package queries

// ReexportQuery matches re-export statements of the shape
//
//	export { default as Button } from "./Button";
//	export { Card, CardHeader } from "./Card";
//	export * from "./Dialog";
//
// Captures:
//   - @reexport.clause - the export_clause holding the specifiers
//   - @reexport.source - the module specifier string
//   - @reexport.star   - the module specifier of a bare `export *`
//
// The same patterns compile against the JavaScript, TypeScript and TSX
// grammars.
const ReexportQuery = `
(export_statement
  (export_clause) @reexport.clause
  source: (string) @reexport.source
)

(export_statement
  "*"
  source: (string) @reexport.star
)
`
