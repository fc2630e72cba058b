package domain

// SystemStatus is the backend index state reported by the status endpoint.
type SystemStatus struct {
	Indexed     bool
	State       string
	TotalImages int
	VectorDim   int
	IndexType   string
	Metric      string
	Endpoints   []string
}

// Preprocessed is the output of the backend preprocessing pipeline.
type Preprocessed struct {
	Image         []byte // PNG
	OriginalSize  string // "WxH"
	ProcessedSize string
}

// Features is the descriptor vector the backend extracts from one image.
type Features struct {
	Vector      []float64
	Dimension   int
	Descriptors map[string]int // descriptor name -> length (LBP, HOG, GABOR)
}
