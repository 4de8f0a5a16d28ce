package team

import "fmt"

// Team is a real football club imported from the upstream provider.
type Team struct {
	ID          string
	ExternalRef int64
	Name        string
	ShortName   string
	Tla         string
	CrestURL    string
}

func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}
	if t.ExternalRef <= 0 {
		return fmt.Errorf("team external ref is required")
	}

	return nil
}
