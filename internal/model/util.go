package model

// MigrateAble is array of model instance, use for migrating database
var MigrateAble []interface{}

func init() {
	MigrateAble = append(
		MigrateAble,
		&User{},
		&Student{},
		&Company{},
		&StatusChange{},
		&CompanyVerification{},
		&VerificationDocument{},
		&File{},
		&Job{},
		&Application{},
		&Internship{},
		&Timesheet{},
		&TimesheetEntry{},
		&InternshipRequest{},
		&Notification{},
	)
}
