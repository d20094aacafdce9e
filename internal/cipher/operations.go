package cipher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
)

// Columnar transposition operations

// ColumnarEncryptOp applies a columnar transposition. Requires the "key"
// parameter.
type ColumnarEncryptOp struct {
	BaseOperation
}

func (op *ColumnarEncryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := keyParam(params)
	if err != nil {
		return nil, err
	}
	out, err := EncryptColumnar(string(input), key)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// ColumnarDecryptOp undoes a columnar transposition. Requires the "key"
// parameter.
type ColumnarDecryptOp struct {
	BaseOperation
}

func (op *ColumnarDecryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := keyParam(params)
	if err != nil {
		return nil, err
	}
	out, err := DecryptColumnar(string(input), key)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Substitution operations

// SubstitutionEncryptOp enciphers with a substitution key given as the
// "mapping" parameter (26 plain letters in cipher order).
type SubstitutionEncryptOp struct {
	BaseOperation
}

func (op *SubstitutionEncryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	m, err := mappingParam(params)
	if err != nil {
		return nil, err
	}
	return []byte(m.Encrypt(string(input))), nil
}

// SubstitutionDecryptOp deciphers with a substitution key given as the
// "mapping" parameter.
type SubstitutionDecryptOp struct {
	BaseOperation
}

func (op *SubstitutionDecryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	m, err := mappingParam(params)
	if err != nil {
		return nil, err
	}
	return []byte(m.Decrypt(string(input))), nil
}

// NormalizeLettersOp uppercases text and strips everything but letters
type NormalizeLettersOp struct {
	BaseOperation
}

func (op *NormalizeLettersOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(alphabet.Letters(string(input))), nil
}

func keyParam(params map[string]interface{}) (Key, error) {
	raw, ok := params["key"]
	if !ok {
		return nil, fmt.Errorf("%w: key", ErrMissingParameter)
	}
	switch v := raw.(type) {
	case Key:
		return v, v.Validate()
	case []int:
		key := Key(v)
		return key, key.Validate()
	case []interface{}:
		key := make(Key, 0, len(v))
		for _, item := range v {
			n, err := toInt(item)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			key = append(key, n)
		}
		return key, key.Validate()
	case string:
		return ParseKey(v)
	default:
		return nil, fmt.Errorf("%w: parameter key has unsupported type %T", ErrInvalidKey, raw)
	}
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("unsupported key element type %T", v)
	}
}

func mappingParam(params map[string]interface{}) (Mapping, error) {
	raw, ok := params["mapping"]
	if !ok {
		return Mapping{}, fmt.Errorf("%w: mapping", ErrMissingParameter)
	}
	switch v := raw.(type) {
	case Mapping:
		if !v.Valid() {
			return Mapping{}, ErrInvalidMapping
		}
		return v, nil
	case string:
		return ParseMapping(v)
	default:
		return Mapping{}, fmt.Errorf("%w: parameter mapping has unsupported type %T", ErrInvalidMapping, raw)
	}
}

func init() {
	columnarEncrypt := &ColumnarEncryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "columnar_encrypt",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "Encrypt letters with a columnar transposition key",
		},
	}
	columnarDecrypt := &ColumnarDecryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "columnar_decrypt",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "Decrypt a columnar transposition with a known key",
		},
	}
	columnarEncrypt.ReverseOp = columnarDecrypt
	columnarDecrypt.ReverseOp = columnarEncrypt

	substitutionEncrypt := &SubstitutionEncryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "substitution_encrypt",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "Encrypt with a monoalphabetic substitution mapping",
		},
	}
	substitutionDecrypt := &SubstitutionDecryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "substitution_decrypt",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "Decrypt a monoalphabetic substitution with a known mapping",
		},
	}
	substitutionEncrypt.ReverseOp = substitutionDecrypt
	substitutionDecrypt.ReverseOp = substitutionEncrypt

	normalize := &NormalizeLettersOp{
		BaseOperation: BaseOperation{
			NameValue:        "normalize_letters",
			TypeValue:        OperationTypeNormalize,
			DescriptionValue: "Uppercase and strip non-letters",
		},
	}

	for _, op := range []Operation{columnarEncrypt, columnarDecrypt, substitutionEncrypt, substitutionDecrypt, normalize} {
		if err := RegisterOperation(op); err != nil {
			panic(err)
		}
	}
}
