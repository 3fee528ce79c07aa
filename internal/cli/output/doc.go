// Package output renders command results for shopmate-cli.
//
// Results are rendered as a table (default), JSON or YAML. The table
// formatter works on decoded JSON values: objects become sorted
// KEY/VALUE tables with nested objects flattened to dotted keys, and
// arrays of objects become one row per element.
package output
