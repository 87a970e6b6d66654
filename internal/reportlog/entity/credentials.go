package entity

const (
	PlaceholderKey    = "key_pending"
	PlaceholderSecret = "secret_pending"
)

// Credentials is the API key pair presented to the logs endpoint. A pair is
// always replaced as a whole.
type Credentials struct {
	Key    string
	Secret string
}

func (c Credentials) IsZero() bool {
	return c.Key == "" && c.Secret == ""
}

func (c Credentials) IsPlaceholder() bool {
	return c.Key == PlaceholderKey && c.Secret == PlaceholderSecret
}

// Authorization returns the value of the Authorization header.
func (c Credentials) Authorization() string {
	return "Bearer " + c.Key + ":" + c.Secret
}
