package flow

// FieldKind selects the validation applied to an answer
type FieldKind string

const (
	FieldKindText  FieldKind = "text"
	FieldKindEmail FieldKind = "email"
	FieldKindPhone FieldKind = "phone"
)

// Lead field names collected by the script
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldInterest = "interest"
)

// Step is one scripted question. The script is a static ordered sequence
// and never changes at runtime.
type Step struct {
	Index  int
	Field  string
	Kind   FieldKind
	Prompt string
}

// Script is the fixed lead-collection question sequence
var Script = []Step{
	{Index: 0, Field: FieldName, Kind: FieldKindText, Prompt: "What is your name?"},
	{Index: 1, Field: FieldEmail, Kind: FieldKindEmail, Prompt: "What is your email?"},
	{Index: 2, Field: FieldPhone, Kind: FieldKindPhone, Prompt: "What is your phone number?"},
	{Index: 3, Field: FieldInterest, Kind: FieldKindText, Prompt: "What are you interested in?"},
}

const closingMessage = "Thank you! That's everything we need. Our team will be in touch soon."
