package models

// ItemRecord is the structured result of extracting one entry page.
// JSON field names match the files written by earlier runs, so item and
// summary files stay readable across versions.
type ItemRecord struct {
	Release         Release         `json:"release"`
	Download        Download        `json:"download"`
	Description     Description     `json:"description"`
	FileInformation FileInformation `json:"file_information"`
	VirtualMachine  VirtualMachine  `json:"virtual_machine"`
	Networking      Networking      `json:"networking"`
	Screenshots     Screenshots     `json:"screenshots"`
}

type Release struct {
	Name   string `json:"name"`
	Date   string `json:"date"`
	Author string `json:"author"`
	Series string `json:"series"`
}

type Download struct {
	Filename   string `json:"filename"`
	Size       string `json:"size"`
	MirrorLink string `json:"mirror_link"`
}

type Description struct {
	Difficulty string `json:"difficulty"`
	Secret     string `json:"secret"`
	Contact    string `json:"contact"`
	Note       string `json:"note"`
}

type FileInformation struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
	MD5      string `json:"md5"`
	SHA1     string `json:"sha1"`
}

type VirtualMachine struct {
	Format          string `json:"format"`
	OperatingSystem string `json:"operating_system"`
}

type Networking struct {
	DHCPService string `json:"dhcp_service"`
	IPAddress   string `json:"ip_address"`
}

// Screenshots holds the thumbnail links found on the page and, once the
// assets have been fetched, one data URL per link in the same order.
type Screenshots struct {
	Available bool           `json:"available"`
	Count     int            `json:"count"`
	Links     []string       `json:"links"`
	Images    []string       `json:"images"`
	Errors    []AssetFailure `json:"errors,omitempty"`
}

// AssetFailure records a screenshot that could not be fetched when the
// crawler is configured to keep the item anyway.
type AssetFailure struct {
	Link  string `json:"link"`
	Error string `json:"error"`
}

// RunSummary is the ordered list of records produced by one invocation.
type RunSummary struct {
	Records []ItemRecord
}

func NewRunSummary() *RunSummary {
	return &RunSummary{Records: make([]ItemRecord, 0)}
}

func (s *RunSummary) Append(record ItemRecord) {
	s.Records = append(s.Records, record)
}

func (s *RunSummary) Len() int {
	return len(s.Records)
}
