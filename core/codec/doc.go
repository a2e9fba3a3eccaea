// Package codec converts between persisted objects and their flat JSON
// representation.
//
// DecodeRecords turns a JSON array of objects into Intermediate records ready
// for reconciliation; Project and EncodeObjects go the other way. Both sides
// use the entity's identifier key for the object's unique identifier and
// carry only the attributes the model declares.
package codec
