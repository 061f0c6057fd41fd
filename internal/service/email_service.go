package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailService delivers verification codes via Amazon SES. When no sender
// address is configured the service runs disabled and logs each code to the
// console instead, which is the development-mode delivery channel.
type EmailService struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	expiresIn string
	enabled   bool
	debug     bool
}

// NewEmailService creates a new email service. otpTTL is quoted in the
// message body so the stated expiry matches the configured code lifetime.
func NewEmailService(awsRegion, fromEmail, fromName string, debug bool, otpTTL time.Duration) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured, OTP codes will be logged")
		return &EmailService{
			expiresIn: formatTTL(otpTTL),
			enabled:   false,
			debug:     debug,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(cfg)

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		expiresIn: formatTTL(otpTTL),
		enabled:   true,
		debug:     debug,
	}, nil
}

// formatTTL renders a code lifetime for the email body, e.g. "10 minutes".
func formatTTL(ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendOTP delivers a verification code to the user. purpose distinguishes
// signup, resend and password-reset wording.
func (s *EmailService) SendOTP(ctx context.Context, toEmail, code, purpose string) error {
	if !s.enabled {
		log.Printf("%s OTP for %s: %s", strings.ToUpper(purpose), toEmail, code)
		return nil
	}

	if s.debug {
		log.Printf("[DEBUG] SendOTP called: to=%s, purpose=%s", toEmail, purpose)
	}

	subject, htmlBody, textBody := s.otpMessage(code, purpose)
	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// otpMessage builds the subject and both bodies for an OTP delivery.
func (s *EmailService) otpMessage(code, purpose string) (subject, htmlBody, textBody string) {
	subject = "Your UniPortal verification code"
	intro := "Use the code below to verify your email address."
	if purpose == PurposeReset {
		subject = "Your UniPortal password reset code"
		intro = "Use the code below to reset your password."
	}

	htmlBody = fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #1f6feb; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.code { font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>UniPortal</h1>
		</div>
		<div class="content">
			<p>%s</p>
			<p class="code">%s</p>
			<p><strong>This code expires in %s.</strong></p>
			<p>If you didn't request this code, you can safely ignore this email.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from UniPortal. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, intro, code, s.expiresIn)

	textBody = fmt.Sprintf(`%s

Your code: %s

This code expires in %s.

If you didn't request this code, you can safely ignore this email.

---
This is an automated email from UniPortal. Please do not reply.
`, intro, code, s.expiresIn)

	return subject, htmlBody, textBody
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent: to=%s, subject=%s", toEmail, subject)
	return nil
}
