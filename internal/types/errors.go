package types

import "errors"

// Sentinel errors for meritd operations.
//
// Validation errors surface to the caller of the registry or pipeline and
// are never partially applied. Not-found errors abort the whole operation.
var (
	// ErrRuleNotFound indicates an unknown rule id on get/replace/delete.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrSubjectNotFound indicates an unknown subject id; ingestion aborts
	// entirely (no grants) when the event's subject is unknown.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrEmptyRuleName indicates a rule payload without a name.
	ErrEmptyRuleName = errors.New("rule name is empty")

	// ErrNonPositivePoints indicates a rule with points <= 0.
	ErrNonPositivePoints = errors.New("rule points must be positive")

	// ErrNilCondition indicates a rule payload without a condition tree.
	ErrNilCondition = errors.New("rule condition is empty")

	// ErrEmptyEventID indicates an event payload without an id.
	ErrEmptyEventID = errors.New("event id is empty")

	// ErrEmptySubjectID indicates an event payload without a subject id.
	ErrEmptySubjectID = errors.New("event subject id is empty")

	// ErrEmptyEventType indicates a rule or event without an event type.
	ErrEmptyEventType = errors.New("event type is empty")

	// ErrTooManyMetadataPairs indicates metadata exceeds MaxMetadataPairs.
	ErrTooManyMetadataPairs = errors.New("too many metadata pairs")

	// ErrMetadataKeyTooLong indicates a key exceeds MaxMetadataKeyLength.
	ErrMetadataKeyTooLong = errors.New("metadata key too long")

	// ErrMetadataNotScalar indicates a nested object or array metadata value.
	ErrMetadataNotScalar = errors.New("metadata value is not a scalar")

	// ErrValueNotScalar indicates an Eq value outside the scalar domain.
	ErrValueNotScalar = errors.New("condition value is not a scalar")

	// ErrValueNotOrdered indicates a Gt/Lt value that is neither number nor date.
	ErrValueNotOrdered = errors.New("condition value must be a number or date")

	// ErrEmptyPath indicates a leaf condition without a metadata key.
	ErrEmptyPath = errors.New("condition path is empty")

	// ErrEmptyPrompt indicates a judge condition without a prompt.
	ErrEmptyPrompt = errors.New("judge condition prompt is empty")

	// ErrConditionTooDeep indicates a tree exceeding MaxConditionDepth.
	ErrConditionTooDeep = errors.New("condition tree exceeds maximum depth")

	// ErrTooManyBranches indicates an And/Or exceeding MaxCombinatorBranches.
	ErrTooManyBranches = errors.New("combinator has too many branches")

	// ErrUnknownCondition indicates an unrecognized condition kind in a
	// payload submitted for validation. Evaluation of an unknown kind fails
	// closed instead of erroring.
	ErrUnknownCondition = errors.New("unknown condition kind")

	// ErrDuplicateGrant indicates a grant already exists for the
	// (rule, event) pair. The ledger never records a second one.
	ErrDuplicateGrant = errors.New("grant already recorded for rule and event")
)
