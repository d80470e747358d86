package dispatch

import (
	"intake-notifications/internal/models"
)

// Parameter aliases written for every delivery. Relay templates differ in
// which names they read, so each value is published under all of them.
var (
	recipientAliases = []string{"to_email", "to", "email", "recipient", "recipient_email", "user_email", "admin_email"}
	subjectAliases   = []string{"subject", "title"}
	htmlAliases      = []string{"message_html", "html_message", "html_content"}
	textAliases      = []string{"message", "message_text", "text_content", "content"}
	senderNameAlias  = []string{"from_name", "sender_name"}
	senderEmailAlias = []string{"from_email", "sender_email", "reply_to"}
)

// BuildParams flattens built content, the recipient and the sender identity
// into relay template parameters. Content fields go in first and aliases win.
func BuildParams(content models.BuiltMessage, recipient string, cfg models.NotificationConfig) map[string]string {
	params := make(map[string]string, len(content.Fields)+24)
	for k, v := range content.Fields {
		params[k] = v
	}

	set := func(keys []string, value string) {
		for _, k := range keys {
			params[k] = value
		}
	}

	set(recipientAliases, recipient)
	set(subjectAliases, content.Subject)
	set(htmlAliases, content.HTML)
	set(textAliases, content.Text)
	set(senderNameAlias, cfg.FromName)
	set(senderEmailAlias, cfg.FromEmail)

	return params
}
