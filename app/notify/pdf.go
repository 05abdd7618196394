package notify

import (
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
	"github.com/vibast-solutions/ms-go-passes/app/qrcode"
)

type PassDocument struct {
	EventName  string
	HolderName string
	PassID     string
	OrderID    string
	PassType   string
	Amount     int64
	Currency   string
	IssuedAt   string
	QRCode     string
	TeamName   string
	Members    []entity.TeamSnapshotMember
}

// PassRenderer produces the printable pass attached to the confirmation email.
type PassRenderer struct {
	eventName string
}

func NewPassRenderer(eventName string) *PassRenderer {
	return &PassRenderer{eventName: eventName}
}

func (r *PassRenderer) Render(doc PassDocument) ([]byte, error) {
	png, err := qrcode.DecodeDataURL(doc.QRCode)
	if err != nil {
		return nil, fmt.Errorf("decode pass qr: %w", err)
	}
	if doc.EventName == "" {
		doc.EventName = r.eventName
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(12, doc.EventName, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)

	m.AddRow(60,
		col.New(7).Add(
			text.New("Pass holder: "+doc.HolderName, props.Text{Top: 4, Style: fontstyle.Bold}),
			text.New("Pass type: "+passTypeLabel(doc.PassType), props.Text{Top: 12}),
			text.New("Pass ID: "+doc.PassID, props.Text{Top: 20, Size: 9}),
			text.New("Order ID: "+doc.OrderID, props.Text{Top: 27, Size: 9}),
			text.New(fmt.Sprintf("Amount paid: %d %s", doc.Amount, doc.Currency), props.Text{Top: 34}),
			text.New("Issued: "+doc.IssuedAt, props.Text{Top: 42, Size: 9}),
		),
		image.NewFromBytesCol(5, png, extension.Png, props.Rect{
			Center:  true,
			Percent: 90,
		}),
	)

	if doc.TeamName != "" {
		m.AddRow(12,
			text.NewCol(12, "Team: "+doc.TeamName, props.Text{
				Size:  12,
				Style: fontstyle.Bold,
				Top:   3,
			}),
		)
		m.AddRow(8,
			text.NewCol(6, "Member", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(4, "Phone", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Role", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		for _, member := range doc.Members {
			role := "Member"
			if member.IsLeader {
				role = "Leader"
			}
			m.AddRow(7,
				text.NewCol(6, member.Name, props.Text{Size: 9}),
				text.NewCol(4, member.Phone, props.Text{Size: 9}),
				text.NewCol(2, role, props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	m.AddRow(15,
		text.NewCol(12, "Present this QR code at the entry gate. It is valid for one holder only.", props.Text{
			Size:  8,
			Top:   6,
			Align: align.Center,
		}),
	)

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}

func passDocument(n PassIssuedNotification, holder string) PassDocument {
	doc := PassDocument{
		HolderName: holder,
		PassID:     n.Pass.ID,
		OrderID:    n.Pass.PaymentID,
		PassType:   n.Pass.PassType,
		Amount:     n.Pass.Amount,
		IssuedAt:   n.Pass.CreatedAt.Format("02 Jan 2006 15:04 MST"),
		QRCode:     n.Pass.QRCode,
	}
	if n.Payment != nil {
		doc.Currency = n.Payment.Currency
	}
	if n.Pass.TeamSnapshot != nil {
		doc.TeamName = n.Pass.TeamSnapshot.TeamName
		doc.Members = n.Pass.TeamSnapshot.Members
	}
	return doc
}

func passTypeLabel(passType string) string {
	switch passType {
	case entity.PassTypeDayPass:
		return "Day Pass"
	case entity.PassTypeGroupEvents:
		return "Group Events"
	case entity.PassTypeProshow:
		return "Proshow"
	case entity.PassTypeSanaConcert:
		return "Sana Concert"
	default:
		return strings.ReplaceAll(passType, "_", " ")
	}
}
