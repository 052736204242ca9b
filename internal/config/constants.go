package config

// Built-in primitive type names
const (
	IntTypeName     = "Int"
	FloatTypeName   = "Float"
	DecimalTypeName = "Decimal"
	StringTypeName  = "String"
	BoolTypeName    = "Bool"
	NilTypeName     = "Nil"
)

// Contract annotation keys recognised on declarations
const (
	PureAnnotation       = "pure"
	EffectsAnnotation    = "effects"
	RequiresAnnotation   = "requires"
	EnsuresAnnotation    = "ensures"
	InvariantAnnotation  = "invariant"
	VerifyAnnotation     = "verify"
	ImplementsAnnotation = "implements"
	DeprecatedAnnotation = "deprecated"
)

// ResultBinding is the name bound to the return value inside
// postcondition predicates.
const ResultBinding = "result"

// FixpointIterationCap bounds relaxation passes over mutually
// recursive declarations. A unit that has not converged after this
// many passes is reported as UnresolvedRecursion.
const FixpointIterationCap = 64

// Default verification gate budgets.
const (
	DefaultObligationBudgetMillis = 500
	DefaultUnitBudgetMillis       = 5000
	DefaultPropertySamples        = 200
)
