package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// FingerprintLength is the number of hex characters kept from the digest.
const FingerprintLength = 16

// CustomerData is the customer part of the fingerprint input. Phone is nil
// when the customer did not send one, which drops the key from the JSON.
type CustomerData struct {
	Name  string  `json:"customer_name"`
	Email string  `json:"customer_email"`
	Phone *string `json:"customer_phone,omitempty"`
}

// FingerprintInput is hashed as JSON in field order. The rendered email is
// not part of it: the email body embeds the fingerprint.
type FingerprintInput struct {
	PlanID            string       `json:"planId"`
	ContractBody      string       `json:"contractBody"`
	CustomerData      CustomerData `json:"customerData"`
	ContractStartDate string       `json:"contractStartDate"`
	GroupEmail        string       `json:"groupEmail"`
	GeneratedAt       string       `json:"generatedAt"`
}

// GenerateFingerprint returns the first 16 hex characters of the SHA-256 of
// the canonical JSON form of in.
func GenerateFingerprint(in FingerprintInput) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(in); err != nil {
		return "", err
	}
	sum := sha256.Sum256(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return hex.EncodeToString(sum[:])[:FingerprintLength], nil
}
