package auth

import (
	"fmt"
	"net/smtp"

	"ip-vault-api/config"
)

// Mailer sends plain-text account emails. Tests substitute a recording fake.
type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct{}

func (SMTPMailer) Send(to, subject, body string) error {
	from := config.SMTP_FROM
	password := config.SMTP_PASSWORD
	host := config.SMTP_HOST
	port := config.SMTP_PORT

	auth := smtp.PlainAuth("", from, password, host)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	err := smtp.SendMail(host+":"+port, auth, from, []string{to}, message)
	if err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
