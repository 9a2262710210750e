package admin

// NewUserAdmin is the admin for actors (auth.user).
func NewUserAdmin() *ModelAdmin {
	return &ModelAdmin{
		AppLabel:    "auth",
		ModelName:   "user",
		VerboseName: "user",
		FieldVerboseNames: map[string]string{
			"username":    "username",
			"first_name":  "first name",
			"last_name":   "last name",
			"email":       "email address",
			"role":        "role",
			"is_active":   "active",
			"password":    "password",
			"permissions": "user permissions",
		},
	}
}

// NewContentTypeAdmin is the admin for tracked model types (contenttypes.contenttype).
func NewContentTypeAdmin() *ModelAdmin {
	return &ModelAdmin{
		AppLabel:    "contenttypes",
		ModelName:   "contenttype",
		VerboseName: "content type",
		FieldVerboseNames: map[string]string{
			"app_label": "app label",
			"model":     "model class name",
		},
	}
}

// NewDefaultSite registers the log entry, user and content type admins.
func NewDefaultSite(logEntries *LogEntryAdmin) *Site {
	site := NewSite()
	site.MustRegister(logEntries)
	site.MustRegister(NewUserAdmin())
	site.MustRegister(NewContentTypeAdmin())
	return site
}
