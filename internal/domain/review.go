package domain

import "time"

// Contract / housing enumerations carried on a review. The empty string
// means "not stated" and is always allowed.
const (
	ContractCDI        = "CDI"
	ContractCDD        = "CDD"
	ContractSeasonal   = "SAISONNIER"
	ContractTemp       = "INTERIM"
	ContractInternship = "STAGE"
	ContractApprentice = "ALTERNANCE"
	ContractFreelance  = "FREELANCE"

	HousingNone     = "NON_LOGE"
	HousingEmployer = "LOGE"

	HousingQualityTop        = "TOP"
	HousingQualityOK         = "OK"
	HousingQualityAverage    = "MOYEN"
	HousingQualityBad        = "MAUVAIS"
	HousingQualityUnsanitary = "INSALUBRE"
)

var (
	Contracts        = []string{ContractCDI, ContractCDD, ContractSeasonal, ContractTemp, ContractInternship, ContractApprentice, ContractFreelance}
	Housings         = []string{HousingNone, HousingEmployer}
	HousingQualities = []string{HousingQualityTop, HousingQualityOK, HousingQualityAverage, HousingQualityBad, HousingQualityUnsanitary}

	contractSet       = makeSet(Contracts)
	housingSet        = makeSet(Housings)
	housingQualitySet = makeSet(HousingQualities)
)

func makeSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func ValidContract(v string) bool { _, ok := contractSet[v]; return ok || v == "" }
func ValidHousing(v string) bool  { _, ok := housingSet[v]; return ok || v == "" }
func ValidHousingQuality(v string) bool {
	_, ok := housingQualitySet[v]
	return ok || v == ""
}

// Flags are the boolean attributes of a review.
type Flags struct {
	SplitShift     bool `json:"coupure"`
	UnpaidOvertime bool `json:"unpaid_overtime"`
	ToxicManager   bool `json:"toxic_manager"`
	Harassment     bool `json:"harassment"`
	Recommend      bool `json:"recommend"`
}

// Review is one community review as persisted by the directory.
// Score is nil for "unscored"; Comment is always non-empty once persisted.
type Review struct {
	ID              int64    `json:"id"`
	EstablishmentID int64    `json:"establishment_id"`
	AuthorID        int64    `json:"user_id"`
	AuthorName      string   `json:"user_pseudo"`
	Score           *float64 `json:"score"`
	Comment         string   `json:"comment"`
	Role            string   `json:"role"`
	Contract        string   `json:"contract"`
	Housing         string   `json:"housing"`
	HousingQuality  string   `json:"housing_quality"`
	Flags
	CreatedAt time.Time `json:"created_at"`
}

// ReviewInput is the payload for creating (or, server-side, upserting)
// a review under an establishment.
type ReviewInput struct {
	EstablishmentID int64    `json:"establishment_id"`
	Score           *float64 `json:"score"`
	Comment         string   `json:"comment"`
	Role            string   `json:"role,omitempty"`
	Contract        string   `json:"contract,omitempty"`
	Housing         string   `json:"housing,omitempty"`
	HousingQuality  string   `json:"housing_quality,omitempty"`
	Flags
}
