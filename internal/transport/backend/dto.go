package backend

import "encoding/json"

// imageRequest is the body accepted by every image-taking endpoint.
type imageRequest struct {
	Image string `json:"imagen"`
}

type searchResponse struct {
	Success *bool        `json:"exito"`
	Results []resultItem `json:"resultados"`
	Total   *int         `json:"total_resultados"`
	Error   string       `json:"error"`
}

type resultItem struct {
	File       string   `json:"archivo"`
	Similarity *float64 `json:"similitud"`
	Distance   *float64 `json:"distancia"`
	Position   *int     `json:"posicion"`
}

type statusResponse struct {
	Indexed   *bool        `json:"sistema_indexado"`
	Stats     statsPayload `json:"estadisticas"`
	Endpoints []string     `json:"endpoints_disponibles"`
}

type statsPayload struct {
	State       string `json:"estado"`
	TotalImages int    `json:"total_imagenes"`
	VectorDim   int    `json:"dimension_vector"`
	IndexType   string `json:"tipo_indice"`
	Metric      string `json:"metrica"`
}

type healthResponse struct {
	State string `json:"estado"`
}

type preprocessResponse struct {
	Success       *bool  `json:"exito"`
	Image         string `json:"imagen_procesada"`
	OriginalSize  string `json:"dimensiones_originales"`
	ProcessedSize string `json:"dimensiones_procesadas"`
	Error         string `json:"error"`
}

type featuresResponse struct {
	Success     *bool          `json:"exito"`
	Vector      []float64      `json:"vector_completo"`
	Dimension   int            `json:"dimension_total"`
	Descriptors map[string]int `json:"detalle_descriptores"`
	Error       string         `json:"error"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// errorReason extracts the "error" field from a JSON error body.
func errorReason(body []byte) string {
	var parsed errorResponse
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Error
	}
	return ""
}
