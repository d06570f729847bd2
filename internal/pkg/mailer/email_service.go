package mailer

import (
	"fmt"
	"strings"

	"club-hipico-be/internal/model"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendAlert(toEmail string, alert model.Alert) error
	SendDigest(toEmail string, alerts []model.Alert) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	frontendURL string // deep links in email bodies point at the frontend
}

func NewEmailService(host string, port int, username, password, senderEmail, frontendURL string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		frontendURL: frontendURL,
	}
}

var priorityColors = map[model.AlertPriority]string{
	model.PriorityCritical: "#D32F2F",
	model.PriorityHigh:     "#F57C00",
	model.PriorityMedium:   "#1976D2",
	model.PriorityLow:      "#616161",
}

var priorityLabels = map[model.AlertPriority]string{
	model.PriorityCritical: "Crítica",
	model.PriorityHigh:     "Alta",
	model.PriorityMedium:   "Media",
	model.PriorityLow:      "Baja",
}

func (s *emailService) SendAlert(toEmail string, alert model.Alert) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[Club Hípico] %s", alert.Title))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<span style="background-color: %s; color: white; padding: 3px 10px; border-radius: 3px; font-size: 12px;">%s</span>
			<h2 style="margin-top: 12px;">%s</h2>
			<p>%s</p>
			%s
			<p style="color: #999; font-size: 12px;">Esta alerta fue generada automáticamente por el sistema del club.</p>
		</div>
	`, priorityColors[alert.Priority], priorityLabels[alert.Priority], alert.Title, alert.Message, s.detailLink(alert))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send alert to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Alert %s sent to %s\n", alert.ID, toEmail)
	return nil
}

func (s *emailService) SendDigest(toEmail string, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[Club Hípico] Tienes %d alertas pendientes", len(alerts)))

	var items strings.Builder
	for _, alert := range alerts {
		items.WriteString(fmt.Sprintf(`
			<li style="margin-bottom: 10px;">
				<span style="color: %s; font-weight: bold;">[%s]</span>
				<strong>%s</strong><br/>
				<span style="color: #555;">%s</span>
			</li>
		`, priorityColors[alert.Priority], priorityLabels[alert.Priority], alert.Title, alert.Message))
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Resumen de alertas</h2>
			<ul style="list-style: none; padding: 0;">%s</ul>
			<a href="%s/alertas" style="background-color: #1976D2; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Ver todas las alertas</a>
		</div>
	`, items.String(), s.frontendURL)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send digest to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Digest of %d alerts sent to %s\n", len(alerts), toEmail)
	return nil
}

func (s *emailService) detailLink(alert model.Alert) string {
	if alert.RelatedEntityType == nil || alert.RelatedEntityID == nil {
		return ""
	}
	url := fmt.Sprintf("%s/%ss/%s", s.frontendURL, *alert.RelatedEntityType, alert.RelatedEntityID.String())
	return fmt.Sprintf(`<a href="%s" style="background-color: #1976D2; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Ver detalle</a>`, url)
}
