package mocks

import "github.com/you/identitysvc/domain"

// MockPasswordService implements domain.PasswordService interface for testing
type MockPasswordService struct {
	HashFunc   func(password string) (string, error)
	VerifyFunc func(hashedPassword, password string) bool
}

// NewMockPasswordService creates a new MockPasswordService with default behaviors
func NewMockPasswordService() *MockPasswordService {
	return &MockPasswordService{}
}

// Hash generates a hash for the given password
func (m *MockPasswordService) Hash(password string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(password)
	}
	// Default behavior: return simple hash (for testing only)
	return "hashed_" + password, nil
}

// Verify verifies a password against its hash
func (m *MockPasswordService) Verify(hashedPassword, password string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(hashedPassword, password)
	}
	// Default behavior: simple check for testing
	return hashedPassword == "hashed_"+password
}

// MockPasswordPolicy implements domain.PasswordPolicy interface for testing
type MockPasswordPolicy struct {
	ValidateFunc func(password string) error
}

// NewMockPasswordPolicy creates a policy that accepts everything by default
func NewMockPasswordPolicy() *MockPasswordPolicy {
	return &MockPasswordPolicy{}
}

// Validate checks a password against the policy
func (m *MockPasswordPolicy) Validate(password string) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(password)
	}
	return nil
}

// Compile-time interface compliance verification
var (
	_ domain.PasswordService = (*MockPasswordService)(nil)
	_ domain.PasswordPolicy  = (*MockPasswordPolicy)(nil)
)
