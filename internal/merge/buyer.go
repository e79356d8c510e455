package merge

import "github.com/sells-group/dealflow/internal/model"

// buyerRecord adapts model.BuyerProfile to the generic patch loop.
type buyerRecord struct {
	b *model.BuyerProfile
}

func (r *buyerRecord) fieldSet() *FieldSet { return BuyerFields() }

func (r *buyerRecord) provenance() model.Provenance { return r.b.ExtractionSources }

func (r *buyerRecord) setProvenance(p model.Provenance) { r.b.ExtractionSources = p }

func (r *buyerRecord) get(key string) (any, bool) {
	b := r.b
	switch key {
	case "name":
		return b.Name, b.Name != ""
	case "pe_firm_name":
		return b.PEFirmName, b.PEFirmName != ""
	case "platform_company_name":
		return b.PlatformCompanyName, b.PlatformCompanyName != ""
	case "website":
		return b.Website, b.Website != ""
	case "min_revenue":
		return deref(b.MinRevenue), b.MinRevenue != nil
	case "max_revenue":
		return deref(b.MaxRevenue), b.MaxRevenue != nil
	case "revenue_sweet_spot":
		return deref(b.RevenueSweetSpot), b.RevenueSweetSpot != nil
	case "min_ebitda":
		return deref(b.MinEBITDA), b.MinEBITDA != nil
	case "max_ebitda":
		return deref(b.MaxEBITDA), b.MaxEBITDA != nil
	case "ebitda_sweet_spot":
		return deref(b.EBITDASweetSpot), b.EBITDASweetSpot != nil
	case "target_services":
		return b.TargetServices, len(b.TargetServices) > 0
	case "target_industries":
		return b.TargetIndustries, len(b.TargetIndustries) > 0
	case "target_geographies":
		return b.TargetGeographies, len(b.TargetGeographies) > 0
	case "thesis_summary":
		return b.ThesisSummary, b.ThesisSummary != ""
	case "business_summary":
		return b.BusinessSummary, b.BusinessSummary != ""
	case "fee_agreement_signed":
		return b.FeeAgreementSigned, b.FeeAgreementSigned
	}
	return nil, false
}

func (r *buyerRecord) set(key string, value any) {
	b := r.b
	switch key {
	case "name":
		b.Name = value.(string)
	case "pe_firm_name":
		b.PEFirmName = value.(string)
	case "platform_company_name":
		b.PlatformCompanyName = value.(string)
	case "website":
		b.Website = value.(string)
	case "min_revenue":
		b.MinRevenue = ptr(value.(float64))
	case "max_revenue":
		b.MaxRevenue = ptr(value.(float64))
	case "revenue_sweet_spot":
		b.RevenueSweetSpot = ptr(value.(float64))
	case "min_ebitda":
		b.MinEBITDA = ptr(value.(float64))
	case "max_ebitda":
		b.MaxEBITDA = ptr(value.(float64))
	case "ebitda_sweet_spot":
		b.EBITDASweetSpot = ptr(value.(float64))
	case "target_services":
		b.TargetServices = value.([]string)
	case "target_industries":
		b.TargetIndustries = value.([]string)
	case "target_geographies":
		b.TargetGeographies = value.([]string)
	case "thesis_summary":
		b.ThesisSummary = value.(string)
	case "business_summary":
		b.BusinessSummary = value.(string)
	case "fee_agreement_signed":
		b.FeeAgreementSigned = value.(bool)
	}
}

func ptr[T any](v T) *T { return &v }

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
