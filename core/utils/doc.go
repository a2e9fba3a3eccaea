// Package utils provides small helpers shared across packages, mainly loose
// type conversion of decoded field values.
package utils
