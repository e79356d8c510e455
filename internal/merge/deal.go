package merge

import "github.com/sells-group/dealflow/internal/model"

// dealRecord adapts model.DealProfile to the generic patch loop.
type dealRecord struct {
	d *model.DealProfile
}

func (r *dealRecord) fieldSet() *FieldSet { return DealFields() }

func (r *dealRecord) provenance() model.Provenance { return r.d.ExtractionSources }

func (r *dealRecord) setProvenance(p model.Provenance) { r.d.ExtractionSources = p }

func (r *dealRecord) get(key string) (any, bool) {
	d := r.d
	switch key {
	case "company_name":
		return d.CompanyName, d.CompanyName != ""
	case "website":
		return d.Website, d.Website != ""
	case "revenue":
		return deref(d.Revenue), d.Revenue != nil
	case "ebitda":
		return deref(d.EBITDA), d.EBITDA != nil
	case "services":
		return d.Services, len(d.Services) > 0
	case "industries":
		return d.Industries, len(d.Industries) > 0
	case "geography":
		return d.Geography, d.Geography != ""
	case "owner_goals":
		return d.OwnerGoals, d.OwnerGoals != ""
	case "business_summary":
		return d.BusinessSummary, d.BusinessSummary != ""
	}
	return nil, false
}

func (r *dealRecord) set(key string, value any) {
	d := r.d
	switch key {
	case "company_name":
		d.CompanyName = value.(string)
	case "website":
		d.Website = value.(string)
	case "revenue":
		d.Revenue = ptr(value.(float64))
	case "ebitda":
		d.EBITDA = ptr(value.(float64))
	case "services":
		d.Services = value.([]string)
	case "industries":
		d.Industries = value.([]string)
	case "geography":
		d.Geography = value.(string)
	case "owner_goals":
		d.OwnerGoals = value.(string)
	case "business_summary":
		d.BusinessSummary = value.(string)
	}
}
