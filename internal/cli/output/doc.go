// Package output renders checkpointctl results as a table, JSON or YAML.
//
// Tables are derived from struct fields by reflection; the column names
// follow the json tags so that all three formats use the same vocabulary.
package output
