// Package export writes the tables of the result database as delimited
// text files, one file per table.
//
// Every field is quoted. SQL NULL is written as the token NULL so that it
// stays distinguishable from an empty string, which is written as "".
package export
