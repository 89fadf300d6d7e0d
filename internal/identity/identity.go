// Package identity manages decentralized identifiers for assistant users.
//
// This is a mock DID implementation: identifiers are deterministic hashes,
// documents follow the W3C DID shape, and credentials are unsigned. A real
// DID method would replace the key material and verification.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aria-ai/aria/internal/errors"
)

const didMethod = "aria"

// Document is a W3C-shaped DID document.
type Document struct {
	Context            string               `json:"@context"`
	ID                 string               `json:"id"`
	Created            time.Time            `json:"created"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication"`

	// AnchorTx is the fake ledger transaction that "anchored" this
	// document. No chain exists behind it.
	AnchorTx string `json:"anchorTx"`
}

// VerificationMethod is one key entry in a DID document.
type VerificationMethod struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Controller      string `json:"controller"`
	PublicKeyBase58 string `json:"publicKeyBase58"`
}

// Credential is an unsigned verifiable credential.
type Credential struct {
	Context      []string       `json:"@context"`
	ID           string         `json:"id"`
	Type         []string       `json:"type"`
	Issuer       string         `json:"issuer"`
	IssuanceDate time.Time      `json:"issuanceDate"`
	Subject      map[string]any `json:"credentialSubject"`
}

// Manager creates and resolves mock DIDs.
type Manager struct {
	mu        sync.RWMutex
	documents map[string]*Document

	log zerolog.Logger
}

// NewManager creates a DID manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		documents: make(map[string]*Document),
		log:       log.With().Str("component", "identity").Logger(),
	}
}

// CreateDID derives a deterministic DID for the user and stores its document.
// Creating the DID for the same user again returns the stored document.
func (m *Manager) CreateDID(userID string) (*Document, error) {
	if userID == "" {
		return nil, errors.New(errors.CodeInvalidInput, "user id required", errors.CategoryUser)
	}

	did := DIDForUser(userID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.documents[did]; ok {
		return doc, nil
	}

	keyID := did + "#keys-1"
	doc := &Document{
		Context: "https://www.w3.org/ns/did/v1",
		ID:      did,
		Created: time.Now().UTC(),
		VerificationMethod: []VerificationMethod{
			{
				ID:              keyID,
				Type:            "Ed25519VerificationKey2018",
				Controller:      did,
				PublicKeyBase58: mockPublicKey(userID),
			},
		},
		Authentication: []string{keyID},
		AnchorTx:       anchorTx(did),
	}
	m.documents[did] = doc

	m.log.Info().Str("did", did).Msg("created DID")
	return doc, nil
}

// Resolve returns the stored document for the DID, or nil when unknown.
func (m *Manager) Resolve(did string) *Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.documents[did]
}

// IssueCredential creates an unsigned credential from issuer to subject.
func (m *Manager) IssueCredential(issuerDID, subjectDID string, claims map[string]any) (*Credential, error) {
	if issuerDID == "" || subjectDID == "" {
		return nil, errors.New(errors.CodeInvalidInput, "issuer and subject required", errors.CategoryUser)
	}

	subject := map[string]any{"id": subjectDID}
	for k, v := range claims {
		subject[k] = v
	}

	cred := &Credential{
		Context: []string{
			"https://www.w3.org/2018/credentials/v1",
			"https://www.w3.org/2018/credentials/examples/v1",
		},
		ID:           "vc:" + uuid.New().String(),
		Type:         []string{"VerifiableCredential", "AriaIdentity"},
		Issuer:       issuerDID,
		IssuanceDate: time.Now().UTC(),
		Subject:      subject,
	}

	m.log.Info().Str("credential", cred.ID).Str("issuer", issuerDID).Msg("issued credential")
	return cred, nil
}

// VerifyCredential checks the credential's structure. Signature verification
// is mocked and always passes for well-formed credentials.
func (m *Manager) VerifyCredential(cred *Credential) bool {
	if cred == nil || cred.ID == "" || cred.Issuer == "" {
		return false
	}
	if id, _ := cred.Subject["id"].(string); id == "" {
		return false
	}
	return true
}

// DIDForUser derives the deterministic DID for a user id.
func DIDForUser(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return fmt.Sprintf("did:%s:%s", didMethod, hex.EncodeToString(sum[:16]))
}

func mockPublicKey(userID string) string {
	sum := sha256.Sum256([]byte("key:" + userID))
	return hex.EncodeToString(sum[:16])
}

// anchorTx fabricates a deterministic transaction hash for the DID.
func anchorTx(did string) string {
	sum := sha256.Sum256([]byte("anchor:" + did))
	return "0x" + hex.EncodeToString(sum[:])
}
