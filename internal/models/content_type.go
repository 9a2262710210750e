package models

// ContentType identifies a tracked model by app label and model name.
type ContentType struct {
	ID       int    `json:"id"`
	AppLabel string `json:"app_label"`
	Model    string `json:"model"`
}

func (c *ContentType) String() string {
	if c == nil {
		return ""
	}
	return c.AppLabel + " | " + c.Model
}
