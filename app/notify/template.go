package notify

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var confirmationTemplate = template.Must(template.ParseFS(templateFS, "templates/pass_issued.html"))

type confirmationView struct {
	Name     string
	PassType string
	PassID   string
	OrderID  string
	Amount   int64
	Currency string
	TeamName string
	Members  []entity.TeamSnapshotMember
	PassURL  string
}

func confirmationData(n PassIssuedNotification, name, passURL string) confirmationView {
	view := confirmationView{
		Name:     name,
		PassType: passTypeLabel(n.Pass.PassType),
		PassID:   n.Pass.ID,
		OrderID:  n.Pass.PaymentID,
		Amount:   n.Pass.Amount,
		PassURL:  passURL,
	}
	if n.Payment != nil {
		view.Currency = n.Payment.Currency
	}
	if n.Pass.TeamSnapshot != nil {
		view.TeamName = n.Pass.TeamSnapshot.TeamName
		view.Members = n.Pass.TeamSnapshot.Members
	}
	return view
}

func renderConfirmation(view confirmationView) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
