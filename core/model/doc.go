// Package model loads entity definitions from a YAML file.
//
// Each entity names the field carrying its unique identifier in external
// records and declares typed attributes with optional go-playground/validator
// rules:
//
//	entities:
//	  - name: person
//	    identifier: id
//	    attributes:
//	      name: {type: string, rules: "required,max=64"}
//	      age:  {type: int, rules: "gte=0"}
//
// A Model implements graph.Validator, so a stack built with
// graph.WithValidator(m) rejects saves whose objects break the rules.
package model
