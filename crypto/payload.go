package crypto

// AlgorithmAESGCM identifies the AEAD scheme recorded in payloads.
const AlgorithmAESGCM = "AES-GCM-256"

// EncryptedPayload is the self-describing result of Encrypt. Binary fields
// are standard base64 so the payload embeds cleanly in JSON documents.
// Salt is present only when the encryption key was password-derived and
// the caller asked for the salt to travel with the payload.
type EncryptedPayload struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt,omitempty"`
	Algorithm  string `json:"algorithm"`
}
