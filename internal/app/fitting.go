package app

// FittingItem is a type placed in a flag of a fitting, e.g. a module in a high slot.
type FittingItem struct {
	Flag     string `json:"flag"`
	Quantity int32  `json:"quantity"`
	TypeID   int32  `json:"type_id"`
}

// Fitting is a ship fitting as stored on the server for a character.
type Fitting struct {
	Description string        `json:"description"`
	FittingID   int32         `json:"fitting_id,omitempty"`
	Items       []FittingItem `json:"items"`
	Name        string        `json:"name"`
	ShipTypeID  int32         `json:"ship_type_id"`
}

// Cargo returns the items of a fitting that are in the cargo hold.
func (f Fitting) Cargo() []FittingItem {
	var items []FittingItem
	for _, it := range f.Items {
		if it.Flag == "Cargo" {
			items = append(items, it)
		}
	}
	return items
}

// CreatedFitting is the response when a new fitting was created.
type CreatedFitting struct {
	FittingID int32 `json:"fitting_id"`
}

// CharacterSkill is a trained skill of a character.
type CharacterSkill struct {
	ActiveSkillLevel   int   `json:"active_skill_level"`
	SkillID            int32 `json:"skill_id"`
	SkillpointsInSkill int64 `json:"skillpoints_in_skill"`
	TrainedSkillLevel  int   `json:"trained_skill_level"`
}

// CharacterSkills are the skills of a character.
type CharacterSkills struct {
	Skills        []CharacterSkill `json:"skills"`
	TotalSP       int64            `json:"total_sp"`
	UnallocatedSP int64            `json:"unallocated_sp"`
}

// Level returns the active level of a skill or 0 when it is not trained.
func (cs CharacterSkills) Level(skillID int32) int {
	for _, s := range cs.Skills {
		if s.SkillID == skillID {
			return s.ActiveSkillLevel
		}
	}
	return 0
}

// CharacterPublicInfo is the public information about a character.
type CharacterPublicInfo struct {
	CorporationID  int32   `json:"corporation_id"`
	Name           string  `json:"name"`
	SecurityStatus float64 `json:"security_status"`
}

// CharacterOverview combines the remote data needed to evaluate fits for a character.
type CharacterOverview struct {
	CharacterID int32
	Info        *CharacterPublicInfo
	Skills      *CharacterSkills
}
