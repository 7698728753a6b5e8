// Package harness runs query scenarios described in YAML and compares the
// rendered SQL against golden files.
//
// # Scenario Format
//
//	name: active_users
//	description: "Active users sorted by name"
//	dialect: sqlite
//	table:
//	  name: users
//	  columns: [id, name, status]
//	policy: policies/users.yaml   # optional, relative to the scenario file
//	security:                     # optional inline policy
//	  allowed_fields: [id, name, status]
//	setup:                        # optional, SQLite only
//	  - CREATE TABLE users (id INTEGER, name TEXT, status TEXT)
//	  - INSERT INTO users VALUES (1, 'Ada', 'active')
//	query: "fields=id,name&filter[status][eq]=active"
//	assertions:
//	  - type: error_codes
//	    codes: []
//	  - type: column_values
//	    column: id
//	    values: [1]
//
// # Assertion Types
//
//   - error_codes: Exact list of error codes in pipeline order
//   - warning_codes: Exact list of warning codes in pipeline order
//   - sql_contains: Rendered SQL contains the given text
//   - row_count: Number of rows returned (requires setup)
//   - column_values: Values of one column in result order (requires setup)
//
// # Golden Files
//
// RunWithGolden writes the rendered statement and issue codes as text and
// compares them with testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
