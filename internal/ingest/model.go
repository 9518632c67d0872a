package ingest

// StructuredResume is the canonical extraction result.
//
// JSON shape:
// {
//   "personal": {"name": str, "email": str, "phone": str, "address": str, "summary": str|null},
//   "skills": [str],
//   "experience": [{"jobTitle": str, "company": str, "startDate": "MM/YYYY", "endDate": "MM/YYYY"|null, "location": str, "tasks": [str]}],
//   "projects": [{"name": str, "tasks": [str], "technologies": [str]}],
//   "education": [{"institution": str, "graduation_date": "MM/YYYY", "course": str, "location": str}]
// }
type StructuredResume struct {
	Personal   Personal     `json:"personal"`
	Skills     []string     `json:"skills"`
	Experience []Experience `json:"experience"`
	Projects   []Project    `json:"projects"`
	Education  []Education  `json:"education"`
}

type Personal struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	Summary *string `json:"summary"`
}

type Experience struct {
	JobTitle  string   `json:"jobTitle"`
	Company   string   `json:"company"`
	StartDate string   `json:"startDate"`
	EndDate   *string  `json:"endDate"`
	Location  string   `json:"location"`
	Tasks     []string `json:"tasks"`
}

type Project struct {
	Name         string   `json:"name"`
	Tasks        []string `json:"tasks"`
	Technologies []string `json:"technologies"`
}

type Education struct {
	Institution    string `json:"institution"`
	GraduationDate string `json:"graduation_date"`
	Course         string `json:"course"`
	Location       string `json:"location"`
}

// normalize replaces nil slices so every list key encodes as [] rather
// than null.
func (r *StructuredResume) normalize() {
	r.Skills = nonNil(r.Skills)
	if r.Experience == nil {
		r.Experience = []Experience{}
	}
	for i := range r.Experience {
		r.Experience[i].Tasks = nonNil(r.Experience[i].Tasks)
	}
	if r.Projects == nil {
		r.Projects = []Project{}
	}
	for i := range r.Projects {
		r.Projects[i].Tasks = nonNil(r.Projects[i].Tasks)
		r.Projects[i].Technologies = nonNil(r.Projects[i].Technologies)
	}
	if r.Education == nil {
		r.Education = []Education{}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
