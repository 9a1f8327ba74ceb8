package formatter

const defaultLabel = "an unclear legal document"

var labels = map[string]string{
	"protective_order_notice":          "a protective or restraining-order notice",
	"family_court_notice":              "a family-court notice",
	"small_claims_complaint":           "a small claims complaint",
	"summons_complaint":                "a court summons or complaint",
	"subpoena_notice":                  "a subpoena notice",
	"judgment_notice":                  "a court judgment notice",
	"court_hearing_notice":             "a court hearing notice",
	"demand_letter":                    "a demand letter",
	"eviction_notice":                  "an eviction notice",
	"foreclosure_default_notice":       "a foreclosure or mortgage-default notice",
	"repossession_notice":              "a repossession notice",
	"landlord_security_deposit_notice": "a landlord security-deposit notice",
	"lease_violation_notice":           "a lease-violation notice",
	"debt_collection_notice":           "a debt collection notice",
	"wage_garnishment_notice":          "a wage garnishment notice",
	"tax_notice":                       "a tax notice",
	"unemployment_benefits_denial":     "an unemployment-benefits denial notice",
	"workers_comp_denial_notice":       "a workers-compensation denial notice",
	"benefits_overpayment_notice":      "a benefits overpayment notice",
	"insurance_denial_letter":          "an insurance denial letter",
	"insurance_subrogation_notice":     "an insurance subrogation notice",
	"incident_evidence_photo":          "an incident evidence photo",
	"utility_shutoff_notice":           "a utility shutoff notice",
	"license_suspension_notice":        "a license suspension notice",
	"citation_ticket":                  "a citation or ticket",
	"general_legal_notice":             "a legal notice",
	"unknown_legal_document":           "an unclear legal document",
	"non_legal_or_unclear_image":       "a non-legal or unclear image",
}

func documentLabel(documentType string) string {
	if l, ok := labels[documentType]; ok {
		return l
	}
	return defaultLabel
}

func escalation(documentType string, timeSensitive bool) Escalation {
	switch documentType {
	case "summons_complaint", "small_claims_complaint", "subpoena_notice", "judgment_notice",
		"court_hearing_notice", "family_court_notice", "protective_order_notice":
		return Escalation{true, "Court-related documents often benefit from timely legal review."}
	case "wage_garnishment_notice":
		return Escalation{true, "Wage garnishment notices can affect paychecks quickly and may have short response windows."}
	case "foreclosure_default_notice":
		return Escalation{true, "Foreclosure and default notices often include strict timelines tied to housing risk."}
	case "repossession_notice", "utility_shutoff_notice":
		return Escalation{true, "This type of notice can quickly affect essential property or services."}
	case "license_suspension_notice":
		return Escalation{true, "License suspension notices often include strict procedural deadlines."}
	}

	if timeSensitive {
		switch documentType {
		case "eviction_notice":
			return Escalation{true, "Eviction timelines can move quickly and may affect housing stability."}
		case "tax_notice", "unemployment_benefits_denial", "workers_comp_denial_notice", "benefits_overpayment_notice":
			return Escalation{true, "Administrative notices can include short appeal or response windows."}
		case "insurance_denial_letter":
			return Escalation{true, "Insurance denial letters can include appeal windows that may expire quickly."}
		}
	}

	return Escalation{false, "No immediate escalation signal was detected from structured facts."}
}

var commonEvidence = []string{
	"A complete copy of the document and envelope/postmark if available.",
	"Any prior notices or related messages (mail, email, text).",
	"Timeline notes: when you received each communication.",
}

var specificEvidence = map[string][]string{
	"incident_evidence_photo": {
		"Photos from multiple angles and distances to show full context.",
		"Date/time/location notes and any police or incident report numbers.",
		"Contact/insurance information for involved parties if available.",
	},
	"protective_order_notice": {
		"The full order/notice with service details and hearing date.",
		"Any prior related court filings or incident reports.",
	},
	"family_court_notice": {
		"Prior court orders, parenting plans, or support records.",
		"Calendar notes and documents tied to the scheduled proceeding.",
	},
	"small_claims_complaint": {
		"Any invoices, contracts, receipts, or photos supporting your side of the claim.",
		"Proof of service and hearing/appearance details.",
	},
	"summons_complaint": {
		"Any contract or agreement related to the dispute.",
		"Proof of service details (date, time, method).",
	},
	"subpoena_notice": {
		"The subpoena and any attached schedule/list of requested records.",
		"Records retention notes and timeline for response.",
	},
	"judgment_notice": {
		"The judgment document and docket/case number details.",
		"Payment records or prior filings related to the judgment.",
	},
	"court_hearing_notice": {
		"Calendar proof and transport/planning notes for hearing attendance.",
		"Prior filings, notices, or correspondence from the court.",
	},
	"demand_letter": {
		"The full demand letter and any attachments.",
		"Records supporting your response position (payments, correspondence, contract terms).",
	},
	"eviction_notice": {
		"Lease agreement and payment records.",
		"Photos or maintenance records if conditions are relevant.",
	},
	"foreclosure_default_notice": {
		"Mortgage statements and payment history.",
		"Notice of default/sale and any loan servicer correspondence.",
	},
	"repossession_notice": {
		"Loan/financing agreement and account statements.",
		"Notice timing details and any cure/reinstatement terms.",
	},
	"landlord_security_deposit_notice": {
		"Move-in/move-out photos and condition reports.",
		"Lease clauses and an itemized deposit deduction statement.",
	},
	"lease_violation_notice": {
		"Lease sections referenced in the notice.",
		"Written communications showing cure steps or disputed facts.",
	},
	"debt_collection_notice": {
		"Account statements and payment history.",
		"Any dispute letters sent to collector/creditor.",
	},
	"wage_garnishment_notice": {
		"Employer withholding notice and pay stubs.",
		"Court order or creditor documentation tied to the garnishment.",
	},
	"tax_notice": {
		"The full notice with tax period, amount, and stated deadline.",
		"Prior returns, payment confirmations, and related agency letters.",
	},
	"unemployment_benefits_denial": {
		"Denial determination letter and cited reasons.",
		"Employment/pay records that support the claim.",
	},
	"workers_comp_denial_notice": {
		"Claim denial letter and claim/incident numbers.",
		"Medical records and employer incident reports.",
	},
	"benefits_overpayment_notice": {
		"Overpayment calculation notice and period covered.",
		"Records supporting waiver, repayment, or dispute position.",
	},
	"insurance_denial_letter": {
		"Policy language and denial letter with cited exclusions.",
		"Claim file documents and any available appeal instructions.",
	},
	"insurance_subrogation_notice": {
		"Subrogation demand and underlying incident documents.",
		"Insurance policy terms and prior claims communications.",
	},
	"utility_shutoff_notice": {
		"The utility notice showing disconnect date and amount due.",
		"Billing/payment records and any prior hardship communications.",
	},
	"license_suspension_notice": {
		"Suspension notice and basis for suspension.",
		"Any hearing request forms and prior DMV/court correspondence.",
	},
	"citation_ticket": {
		"Citation copy and related photos/videos.",
		"Witness details and location/time context.",
	},
}

func evidenceChecklist(documentType string) []string {
	out := make([]string, 0, len(commonEvidence)+2)
	out = append(out, commonEvidence...)
	return append(out, specificEvidence[documentType]...)
}
