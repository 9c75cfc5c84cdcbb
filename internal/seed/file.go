package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/campusdesk/officehours/internal/domain"
)

type fileRecord struct {
	Name          string  `yaml:"name"`
	Email         string  `yaml:"email"`
	Department    string  `yaml:"department"`
	Office        string  `yaml:"office"`
	Phone         *string `yaml:"phone"`
	OfficeHours   *string `yaml:"office_hours"`
	Status        string  `yaml:"status"`
	CustomMessage *string `yaml:"custom_message"`
	IsActive      *bool   `yaml:"is_active"`
}

type fileDocument struct {
	Faculty []fileRecord `yaml:"faculty"`
}

// LoadFile reads seed records from a YAML document of the form:
//
//	faculty:
//	  - name: Dr. Ada Lovelace
//	    email: ada@university.edu
//	    department: Mathematics
//	    office: Room 1
//	    status: available
func LoadFile(path string) ([]domain.NewStatusRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML seed document.
func Parse(raw []byte) ([]domain.NewStatusRecord, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	out := make([]domain.NewStatusRecord, 0, len(doc.Faculty))
	for i, rec := range doc.Faculty {
		var status domain.Status
		if rec.Status != "" {
			parsed, err := domain.ParseStatus(rec.Status)
			if err != nil {
				return nil, fmt.Errorf("seed entry %d: %w", i, err)
			}
			status = parsed
		}
		out = append(out, domain.NewStatusRecord{
			DisplayName:  rec.Name,
			ContactEmail: rec.Email,
			Department:   rec.Department,
			Location:     rec.Office,
			Phone:        rec.Phone,
			OfficeHours:  rec.OfficeHours,
			Status:       status,
			Note:         rec.CustomMessage,
			Active:       rec.IsActive,
		})
	}
	return out, nil
}
