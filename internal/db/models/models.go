package models

// All lists the models migrated at startup.
func All() []any {
	return []any{
		&User{},
		&LoginAttempt{},
		&Session{},
	}
}
