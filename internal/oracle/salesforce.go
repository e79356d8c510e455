package oracle

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow/internal/dedupe"
	"github.com/sells-group/dealflow/internal/model"
	"github.com/sells-group/dealflow/pkg/salesforce"
)

// contactLimit caps how many contacts a single discovery pulls back.
const contactLimit = 25

// SalesforceDiscovery implements ContactDiscovery with a SOQL lookup against
// the buyer's account, matched by website domain, falling back to the
// display name when no website is known.
type SalesforceDiscovery struct {
	client salesforce.Client
}

// NewSalesforceDiscovery creates a SalesforceDiscovery.
func NewSalesforceDiscovery(client salesforce.Client) *SalesforceDiscovery {
	return &SalesforceDiscovery{client: client}
}

type sfContact struct {
	Id    string
	Name  string
	Title string
	Email string
	Phone string
}

func (d *SalesforceDiscovery) Discover(ctx context.Context, buyer *model.BuyerProfile) ([]model.Contact, error) {
	clause := ""
	if domain := dedupe.NormalizeDomain(buyer.Website); domain != "" {
		clause = "Account.Website LIKE '%" + escapeSOQL(domain) + "%'"
	} else if name := buyer.DisplayName(); name != "" {
		clause = "Account.Name = '" + escapeSOQL(name) + "'"
	} else {
		return nil, nil
	}

	soql := "SELECT Id, Name, Title, Email, Phone FROM Contact WHERE " + clause +
		" ORDER BY Name LIMIT " + strconv.Itoa(contactLimit)

	var records []sfContact
	if err := d.client.Query(ctx, soql, &records); err != nil {
		return nil, eris.Wrapf(err, "oracle: discover contacts for buyer %s", buyer.ID)
	}

	contacts := make([]model.Contact, 0, len(records))
	for _, r := range records {
		if r.Email == "" && r.Phone == "" {
			continue
		}
		contacts = append(contacts, model.Contact{
			BuyerID:  buyer.ID,
			FullName: r.Name,
			Title:    r.Title,
			Email:    r.Email,
			Phone:    r.Phone,
			Source:   "salesforce",
		})
	}

	zap.L().Debug("oracle: contacts discovered",
		zap.String("buyer_id", buyer.ID),
		zap.Int("count", len(contacts)))
	return contacts, nil
}

// escapeSOQL escapes single quotes in a SOQL string literal.
func escapeSOQL(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
