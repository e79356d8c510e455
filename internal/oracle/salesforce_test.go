package oracle

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow/internal/model"
)

// fakeSFClient records the SOQL it receives and writes canned rows into out.
type fakeSFClient struct {
	soql    string
	records []sfContact
	err     error
}

func (f *fakeSFClient) Query(_ context.Context, soql string, out any) error {
	f.soql = soql
	if f.err != nil {
		return f.err
	}
	*out.(*[]sfContact) = f.records
	return nil
}

func TestSalesforceDiscovery_QueriesByDomain(t *testing.T) {
	sf := &fakeSFClient{records: []sfContact{
		{Id: "003A", Name: "Pat Doyle", Title: "Partner", Email: "pat@summit.com"},
		{Id: "003B", Name: "No Reachable Info"},
	}}
	d := NewSalesforceDiscovery(sf)

	buyer := &model.BuyerProfile{ID: "b1", Name: "Summit Partners", Website: "https://www.Summit.com/team"}
	contacts, err := d.Discover(context.Background(), buyer)
	require.NoError(t, err)

	assert.Contains(t, sf.soql, "Account.Website LIKE '%summit.com%'")

	// Contacts with neither email nor phone are dropped.
	require.Len(t, contacts, 1)
	assert.Equal(t, "b1", contacts[0].BuyerID)
	assert.Equal(t, "Pat Doyle", contacts[0].FullName)
	assert.Equal(t, "salesforce", contacts[0].Source)
}

func TestSalesforceDiscovery_FallsBackToName(t *testing.T) {
	sf := &fakeSFClient{}
	d := NewSalesforceDiscovery(sf)

	buyer := &model.BuyerProfile{ID: "b1", Name: "O'Brien Capital"}
	_, err := d.Discover(context.Background(), buyer)
	require.NoError(t, err)

	assert.Contains(t, sf.soql, `Account.Name = 'O\'Brien Capital'`)
}

func TestSalesforceDiscovery_NoIdentifiers(t *testing.T) {
	sf := &fakeSFClient{}
	d := NewSalesforceDiscovery(sf)

	contacts, err := d.Discover(context.Background(), &model.BuyerProfile{ID: "b1"})
	require.NoError(t, err)
	assert.Nil(t, contacts)
	assert.Empty(t, sf.soql)
}

func TestSalesforceDiscovery_QueryError(t *testing.T) {
	sf := &fakeSFClient{err: eris.New("session expired")}
	d := NewSalesforceDiscovery(sf)

	_, err := d.Discover(context.Background(), &model.BuyerProfile{ID: "b1", Website: "summit.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discover contacts")
}
