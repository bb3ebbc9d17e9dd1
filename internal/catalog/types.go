package catalog

// Seed is one resource described in a YAML seed file.
type Seed struct {
	Resource SeedResource  `yaml:"resource"`
	Chapters []SeedChapter `yaml:"chapters"`
}

type SeedResource struct {
	Title      string `yaml:"title"`
	Type       string `yaml:"type"`
	Subject    string `yaml:"subject"`
	Grade      int    `yaml:"grade"`
	Year       int    `yaml:"year"`
	Curriculum string `yaml:"curriculum"`
	Publisher  string `yaml:"publisher"`
	Status     string `yaml:"status"`
}

// SeedChapter is a chapter with its topics and any questions attached to the
// chapter itself.
type SeedChapter struct {
	Number    *int           `yaml:"number"`
	Order     int            `yaml:"order"`
	Title     string         `yaml:"title"`
	Topics    []SeedNode     `yaml:"topics"`
	Questions []SeedQuestion `yaml:"questions"`
}

// SeedNode is a topic or subtopic. Subtopics nest under topics only.
type SeedNode struct {
	Number    *int           `yaml:"number"`
	Order     int            `yaml:"order"`
	Title     string         `yaml:"title"`
	Subtopics []SeedNode     `yaml:"subtopics"`
	Questions []SeedQuestion `yaml:"questions"`
}

// SeedQuestion holds canonical question and solution payloads as YAML maps.
type SeedQuestion struct {
	Type     string         `yaml:"type"`
	Number   string         `yaml:"number"`
	Order    int            `yaml:"order"`
	Content  map[string]any `yaml:"content"`
	Solution map[string]any `yaml:"solution"`
}
