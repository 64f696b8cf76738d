package email

// Driver names accepted by NewSender.
const (
	DriverPostmark = "postmark"
	DriverDev      = "dev"
)

// Config holds email settings. Postmark tokens are only needed when Driver is
// "postmark"; the dev driver writes messages to DevDir instead of sending them.
type Config struct {
	Driver               string `env:"EMAIL_DRIVER" envDefault:"dev"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@pcbuilder.local"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@pcbuilder.local"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"tmp/emails"`
}
