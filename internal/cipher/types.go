package cipher

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownOperation is returned when a pipeline names an operation
	// that is not registered.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrMissingParameter is returned when an operation lacks a required
	// parameter.
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrNotReversible is returned when a pipeline cannot be inverted.
	ErrNotReversible = errors.New("not reversible")
)

// OperationType defines the category of a transformation operation
type OperationType string

const (
	OperationTypeEncrypt   OperationType = "encrypt"
	OperationTypeDecrypt   OperationType = "decrypt"
	OperationTypeNormalize OperationType = "normalize"
)

// Operation is a single named transformation over text.
type Operation interface {
	// Name returns the unique identifier for this operation
	Name() string

	// Type returns the category of this operation
	Type() OperationType

	// Description returns a human-readable description
	Description() string

	// Execute applies the operation to the input text
	Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error)

	// Reverse returns the inverse operation if available
	Reverse() (Operation, bool)
}

// OperationConfig names an operation and its parameters within a pipeline
type OperationConfig struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Pipeline chains operations, feeding each output into the next step
type Pipeline struct {
	Operations []OperationConfig `json:"operations"`
	Reversible bool              `json:"reversible"`
}

// Execute runs the pipeline on the input
func (p *Pipeline) Execute(ctx context.Context, input []byte) ([]byte, error) {
	result := input
	var err error

	for i, opConfig := range p.Operations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op, exists := GetOperation(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("%w at step %d: %s", ErrUnknownOperation, i, opConfig.Name)
		}

		result, err = op.Execute(ctx, result, opConfig.Parameters)
		if err != nil {
			return nil, fmt.Errorf("operation %s failed at step %d: %w", opConfig.Name, i, err)
		}
	}

	return result, nil
}

// Reverse builds the inverse pipeline: steps in reverse order, each replaced
// by its inverse operation with the same parameters.
func (p *Pipeline) Reverse() (*Pipeline, error) {
	if !p.Reversible {
		return nil, fmt.Errorf("pipeline is %w", ErrNotReversible)
	}

	reversed := &Pipeline{
		Operations: make([]OperationConfig, len(p.Operations)),
		Reversible: true,
	}

	for i, opConfig := range p.Operations {
		op, exists := GetOperation(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, opConfig.Name)
		}

		reverseOp, ok := op.Reverse()
		if !ok {
			return nil, fmt.Errorf("operation %s is %w", opConfig.Name, ErrNotReversible)
		}

		reversed.Operations[len(p.Operations)-1-i] = OperationConfig{
			Name:       reverseOp.Name(),
			Parameters: opConfig.Parameters,
		}
	}

	return reversed, nil
}

// CipherKind names a classical cipher family.
type CipherKind string

const (
	KindTransposition CipherKind = "transposition"
	KindSubstitution  CipherKind = "substitution"
	KindUnknown       CipherKind = "unknown"
)

// DetectionResult is one candidate classification of a ciphertext
type DetectionResult struct {
	Kind       CipherKind `json:"kind"`
	Confidence float64    `json:"confidence"` // 0.0 to 1.0
	Reasoning  string     `json:"reasoning"`
	Operation  string     `json:"operation,omitempty"` // Suggested operation to decrypt once a key is known
}

// Detector classifies ciphertext by cipher family
type Detector interface {
	Detect(ctx context.Context, input []byte) ([]DetectionResult, error)

	// SupportedKinds lists the cipher families this detector can identify
	SupportedKinds() []CipherKind
}

// BaseOperation provides the metadata half of Operation
type BaseOperation struct {
	NameValue        string
	TypeValue        OperationType
	DescriptionValue string
	ReverseOp        Operation
}

func (b *BaseOperation) Name() string {
	return b.NameValue
}

func (b *BaseOperation) Type() OperationType {
	return b.TypeValue
}

func (b *BaseOperation) Description() string {
	return b.DescriptionValue
}

func (b *BaseOperation) Reverse() (Operation, bool) {
	if b.ReverseOp == nil {
		return nil, false
	}
	return b.ReverseOp, true
}
