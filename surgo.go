package surgo

import (
	"github.com/corvids/surgo/core"
	"github.com/corvids/surgo/schema"
	"github.com/corvids/surgo/validator"
)

// Re-export core types and functions
type Client = core.Client
type Query = core.Query
type Options = core.Options
type Migrator = core.Migrator

var (
	Open      = core.Open
	NewClient = core.NewClient
)

// Re-export schema types and helpers
type Schema = schema.Schema
type Table = schema.Table
type Field = schema.Field
type Index = schema.Index
type Event = schema.Event
type Permissions = schema.Permissions

var (
	NewSchema  = schema.New
	FromStruct = schema.FromStruct
	Constraint = schema.Constraint
	Trigger    = schema.Trigger
)

// Re-export validator types and functions
type Rules = validator.Rules
type Rule = validator.Rule
type ValidationErrors = validator.ValidationErrors

var (
	Check    = validator.Check
	FirstMsg = validator.FirstMsg

	// Rules
	Required = validator.Required

	// Rule creators
	MinLen   = validator.MinLen
	MaxLen   = validator.MaxLen
	Range    = validator.Range
	In       = validator.In
	Regexp   = validator.Regexp
	Datetime = validator.Datetime
)
