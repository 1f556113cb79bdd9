// Package marketplace holds the persistent models of the case hall.
package marketplace

// All returns every model for AutoMigrate, in dependency order.
func All() []interface{} {
	return []interface{}{
		&AttorneyProfile{},
		&Case{},
		&Bid{},
		&BidVersion{},
		&Conversation{},
		&EngagementConfirmation{},
		&CaseStatusLog{},
		&CaseRuleHit{},
		&CaseReport{},
		&CaseDispute{},
		&RankingConfigRow{},
	}
}
