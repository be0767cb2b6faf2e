package model

type Specialty string

const (
	PrimaryCare  Specialty = "primary_care"
	Cardiology   Specialty = "cardiology"
	Dermatology  Specialty = "dermatology"
	Pediatrics   Specialty = "pediatrics"
	Orthopedics  Specialty = "orthopedics"
	Neurology    Specialty = "neurology"
)

type WorkingHours struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type Provider struct {
	ID                   string         `json:"id"`
	FirstName            string         `json:"first_name"`
	LastName             string         `json:"last_name"`
	Title                string         `json:"title"`
	Specialty            Specialty      `json:"specialty"`
	Credentials          []string       `json:"credentials,omitempty"`
	Bio                  string         `json:"bio,omitempty"`
	LocationIDs          []string       `json:"location_ids"`
	WorkingHours         []WorkingHours `json:"working_hours"`
	AppointmentTypes     []string       `json:"appointment_types"`
	AcceptingNewPatients bool           `json:"accepting_new_patients"`
	Languages            []string       `json:"languages,omitempty"`
}

func (p *Provider) FullName() string {
	return p.Title + " " + p.FirstName + " " + p.LastName
}

type Location struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Phone   string `json:"phone"`
}

type ProviderSearch struct {
	Specialty            Specialty
	Name                 string
	AcceptingNewPatients bool
	Limit                int
	Offset               int
}
