package service

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"wordhero/internal/models"
)

// EmailService sends certificate notifications via Amazon SES
type EmailService struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
	debug     bool
}

// NewEmailService creates a new email service. It is disabled when fromEmail is empty.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		if debug {
			log.Println("[DEBUG] Certificate notifications will be skipped")
		}
		return &EmailService{
			enabled: false,
			debug:   debug,
		}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES")
		log.Printf("[DEBUG] AWS Region: %s", awsRegion)
		log.Printf("[DEBUG] From Email: %s", fromEmail)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		debug:     debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// NotifyCertificate tells a student's teacher that the student earned a certificate.
// Students without a teacher email are skipped.
func (s *EmailService) NotifyCertificate(ctx context.Context, student *models.Student, cert models.Certificate) error {
	if student.TeacherEmail == "" {
		if s.debug {
			log.Printf("[DEBUG] No teacher email for %s, skipping certificate notification", student.ID)
		}
		return nil
	}
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): certificate for %s to %s", student.ID, student.TeacherEmail)
		return nil
	}

	subject, htmlBody, textBody := certificateEmail(student, cert)
	return s.sendEmail(ctx, student.TeacherEmail, subject, htmlBody, textBody)
}

// certificateEmail renders the notification
func certificateEmail(student *models.Student, cert models.Certificate) (subject, htmlBody, textBody string) {
	teacher := student.TeacherName
	if teacher == "" {
		teacher = "Teacher"
	}
	subject = fmt.Sprintf("%s earned the %s certificate", student.Name, cert.Title)

	htmlBody = fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #00c2a0; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>%s</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p><strong>%s</strong> spelled every word of a %s game correctly and earned a certificate on %s.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Word Hero. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(cert.Title), html.EscapeString(teacher), html.EscapeString(student.Name),
		html.EscapeString(string(cert.Difficulty)), html.EscapeString(cert.EarnedDate))

	textBody = fmt.Sprintf(`Hi %s,

%s spelled every word of a %s game correctly and earned the %s certificate on %s.

---
This is an automated email from Word Hero. Please do not reply.
`, teacher, student.Name, cert.Difficulty, cert.Title, cert.EarnedDate)

	return subject, htmlBody, textBody
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if s.debug {
		log.Printf("[DEBUG] sendEmail called: to=%s, subject=%s", toEmail, subject)
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		log.Printf("[DEBUG] From address: %s", fromAddress)
		log.Printf("[DEBUG] To address: %s", toEmail)
		log.Printf("[DEBUG] Subject: %s", subject)
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

	if s.debug {
		log.Printf("[DEBUG] Calling SES SendEmail API...")
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		if s.debug {
			log.Printf("[DEBUG] SES SendEmail failed: %v", err)
		}
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug {
		log.Printf("[DEBUG] SES SendEmail succeeded")
		if result.MessageId != nil {
			log.Printf("[DEBUG] Message ID: %s", *result.MessageId)
		}
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
