package cipher

import (
	"context"
	"testing"
)

// mockOperation is a test implementation of Operation
type mockOperation struct {
	BaseOperation
}

func (m *mockOperation) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return input, nil
}

func newMock(name string, opType OperationType) *mockOperation {
	return &mockOperation{BaseOperation: BaseOperation{NameValue: name, TypeValue: opType, DescriptionValue: "mock " + name}}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(newMock("mock", OperationTypeEncrypt)); err != nil {
		t.Fatalf("failed to register operation: %v", err)
	}
	if err := r.Register(newMock("mock", OperationTypeEncrypt)); err == nil {
		t.Fatal("expected error when registering duplicate operation")
	}
	if err := r.Register(nil); err == nil {
		t.Fatal("expected error registering nil operation")
	}
	if err := r.Register(newMock("", OperationTypeEncrypt)); err == nil {
		t.Fatal("expected error registering unnamed operation")
	}
}

func TestRegistryListAndFilter(t *testing.T) {
	r := NewRegistry()
	for _, op := range []Operation{
		newMock("zeta", OperationTypeDecrypt),
		newMock("alpha", OperationTypeEncrypt),
		newMock("mid", OperationTypeDecrypt),
	} {
		if err := r.Register(op); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	all := r.List()
	if len(all) != 3 || all[0].Name() != "alpha" || all[2].Name() != "zeta" {
		t.Fatalf("unexpected ordering: %v", names(all))
	}

	decrypts := r.List(OperationTypeDecrypt)
	if len(decrypts) != 2 || decrypts[0].Name() != "mid" {
		t.Fatalf("unexpected decrypt ops: %v", names(decrypts))
	}

	r.Unregister("mid")
	if _, ok := r.Get("mid"); ok {
		t.Fatal("expected mid to be removed")
	}
}

func TestGlobalRegistryHasClassicalOperations(t *testing.T) {
	for _, name := range []string{"columnar_encrypt", "columnar_decrypt", "substitution_encrypt", "substitution_decrypt", "normalize_letters"} {
		op, ok := GetOperation(name)
		if !ok {
			t.Fatalf("operation %s not registered", name)
		}
		if op.Description() == "" {
			t.Errorf("operation %s has no description", name)
		}
	}

	for _, op := range ListOperationsByType(OperationTypeEncrypt) {
		rev, ok := op.Reverse()
		if !ok || rev.Type() != OperationTypeDecrypt {
			t.Errorf("encrypt operation %s should reverse to a decrypt operation", op.Name())
		}
	}
	if len(ListOperations()) < 5 {
		t.Fatalf("expected at least 5 registered operations, got %d", len(ListOperations()))
	}
}

func names(ops []Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Name()
	}
	return out
}
