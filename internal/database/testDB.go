package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"

	"InternHub-backend/internal/config"
	m "InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

var testDBInstance *DBinstanceStruct
var teardown func(context.Context, ...testcontainers.TerminateOption) error

// Exported test users & profiles
var (
	TestAdminUser    m.User
	TestUserStudent1 m.User
	TestUserStudent2 m.User
	TestUserCompany1 m.User
	TestUserCompany2 m.User
	TestStudent1     m.Student
	TestStudent2     m.Student
	TestCompany1     m.Company
	TestCompany2     m.Company

	// Plain password shared by every seeded account
	TestSeedPassword = "SeedPass123!"

	// Seeded listings of TestCompany1
	TestJobActive  m.Job
	TestJobDraft   m.Job
	TestJobPending m.Job
)

const testAdminUsername = "admin_user"

// GetTestDB starts a PostgreSQL test container and returns a teardown function,
// the DB instance, and any error encountered during setup.
func GetTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, *DBinstanceStruct, error) {
	if testDBInstance != nil && teardown != nil {
		return teardown, testDBInstance, nil
	}

	terminate, dsn, err := startTestContainer()
	if err != nil {
		return terminate, nil, err
	}

	cfg := &config.DatabaseConfig{
		UseConnectionStr: true,
		ConnectionStr:    dsn,
	}

	db, err := NewDBInstance(cfg, testAdminUsername, TestSeedPassword)
	if err != nil {
		return terminate, nil, err
	}

	if err := seedTestData(db); err != nil {
		_ = terminate(context.Background())
		return nil, nil, err
	}

	testDBInstance = db
	teardown = terminate

	return terminate, db, nil
}

// seedTestData inserts two students, two companies and three listings.
func seedTestData(db *DBinstanceStruct) error {
	var userCount int64
	if err := db.Model(&m.User{}).Count(&userCount).Error; err != nil {
		return err
	}

	// Ignore admin user that got create during NewDBInstance
	if userCount > 1 {
		return loadTestData(db)
	}

	if err := db.Where("username = ?", testAdminUsername).First(&TestAdminUser).Error; err != nil {
		return err
	}

	hashedPwd, err := utilities.HashPassword(TestSeedPassword)
	if err != nil {
		return err
	}

	userSpecs := []struct {
		username string
		email    string
		role     string
		target   *m.User
	}{
		{"student_1", "student1@example.com", m.RoleStudent, &TestUserStudent1},
		{"student_2", "student2@example.com", m.RoleStudent, &TestUserStudent2},
		{"company_user_1", "company1@example.com", m.RoleCompany, &TestUserCompany1},
		{"company_user_2", "company2@example.com", m.RoleCompany, &TestUserCompany2},
	}
	for _, s := range userSpecs {
		u := m.User{
			ID:       uuid.New(),
			Username: s.username,
			Password: hashedPwd,
			Role:     s.role,
			EditableUserInfo: m.EditableUserInfo{
				Email: ptr(s.email),
			},
		}
		if err := db.Create(&u).Error; err != nil {
			return err
		}
		*s.target = u
	}

	year3, year2 := "3", "2"
	students := []m.Student{
		{
			UserID: TestUserStudent1.ID,
			EditableStudentInfo: m.EditableStudentInfo{
				FirstName:  "Alice",
				LastName:   "Tan",
				University: "Universiti Malaya",
				Program:    "Computer Science",
				Year:       &year3,
				Skills:     pq.StringArray{"go", "sql"},
			},
		},
		{
			UserID: TestUserStudent2.ID,
			EditableStudentInfo: m.EditableStudentInfo{
				FirstName:  "Bala",
				LastName:   "Kumar",
				University: "Universiti Teknologi Malaysia",
				Program:    "Software Engineering",
				Year:       &year2,
				Skills:     pq.StringArray{"react", "typescript"},
			},
		},
	}
	if err := db.Create(&students).Error; err != nil {
		return err
	}
	TestStudent1, TestStudent2 = students[0], students[1]

	now := time.Now().UTC()
	sizeM := "M"
	company1 := m.NewCompany(TestUserCompany1.ID, m.EditableCompanyInfo{
		Name:           "TechNova",
		RegistrationNo: "202301000123",
		Industry:       "Software",
		Size:           &sizeM,
		Overview:       "Innovative platform solutions",
	}, now)
	approve, err := company1.Approve(now, TestAdminUser.ID)
	if err != nil {
		return err
	}
	company1.History = append(company1.History, approve)

	company2 := m.NewCompany(TestUserCompany2.ID, m.EditableCompanyInfo{
		Name:     "DataForge",
		Industry: "Consulting",
		Overview: "Data analytics consulting",
	}, now)

	if err := db.Create(&company1).Error; err != nil {
		return err
	}
	if err := db.Create(&company2).Error; err != nil {
		return err
	}
	TestCompany1, TestCompany2 = company1, company2

	active, err := seedJob(db, company1.ID, "Backend Engineer Intern", m.JobActive, now)
	if err != nil {
		return err
	}
	draft, err := seedJob(db, company1.ID, "Frontend Developer Intern", m.JobDraft, now)
	if err != nil {
		return err
	}
	pending, err := seedJob(db, company1.ID, "Data Analyst Intern", m.JobPending, now)
	if err != nil {
		return err
	}
	TestJobActive, TestJobDraft, TestJobPending = active, draft, pending

	return nil
}

func seedJob(db *DBinstanceStruct, companyID uint, title, status string, now time.Time) (m.Job, error) {
	job, err := m.NewJob(companyID, m.EditableJobInfo{
		Title:       title,
		Description: "Work with the engineering team.",
		Location:    "Kuala Lumpur (Hybrid)",
		Salary:      "RM1500",
		Tags:        pq.StringArray{"internship"},
	}, now, TestUserCompany1.ID)
	if err != nil {
		return job, err
	}
	if status != m.JobDraft {
		change, err := job.Submit(now, TestUserCompany1.ID)
		if err != nil {
			return job, err
		}
		job.History = append(job.History, change)
	}
	if status == m.JobActive {
		change, err := job.Approve(now, TestAdminUser.ID)
		if err != nil {
			return job, err
		}
		job.History = append(job.History, change)
	}
	return job, db.Create(&job).Error
}

// loadTestData populates exported variables when records already exist.
func loadTestData(db *DBinstanceStruct) error {
	var users []m.User
	if err := db.Where("username IN ?", []string{
		testAdminUsername, "student_1", "student_2", "company_user_1", "company_user_2",
	}).Find(&users).Error; err != nil {
		return err
	}
	for _, u := range users {
		switch u.Username {
		case testAdminUsername:
			TestAdminUser = u
		case "student_1":
			TestUserStudent1 = u
		case "student_2":
			TestUserStudent2 = u
		case "company_user_1":
			TestUserCompany1 = u
		case "company_user_2":
			TestUserCompany2 = u
		}
	}

	if err := db.First(&TestStudent1, "user_id = ?", TestUserStudent1.ID).Error; err != nil {
		return err
	}
	if err := db.First(&TestStudent2, "user_id = ?", TestUserStudent2.ID).Error; err != nil {
		return err
	}
	if err := db.First(&TestCompany1, "owner_user_id = ?", TestUserCompany1.ID).Error; err != nil {
		return err
	}
	if err := db.First(&TestCompany2, "owner_user_id = ?", TestUserCompany2.ID).Error; err != nil {
		return err
	}

	var jobs []m.Job
	if err := db.Where("company_id = ?", TestCompany1.ID).Order("id ASC").Limit(3).Find(&jobs).Error; err != nil {
		return err
	}
	if len(jobs) == 3 {
		TestJobActive, TestJobDraft, TestJobPending = jobs[0], jobs[1], jobs[2]
	}
	return nil
}

// CreateTestUser inserts a user with a random username and TestSeedPassword.
// Students get an empty profile, companies get a company in companyStatus.
func CreateTestUser(db *DBinstanceStruct, role string, companyStatus string) (m.User, error) {
	hashedPwd, err := utilities.HashPassword(TestSeedPassword)
	if err != nil {
		return m.User{}, err
	}
	user := m.User{
		Username: fmt.Sprintf("%s_%s", role, uuid.NewString()[:8]),
		Password: hashedPwd,
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		return user, err
	}

	switch role {
	case m.RoleStudent:
		return user, db.Create(&m.Student{UserID: user.ID, EditableStudentInfo: m.EditableStudentInfo{FirstName: "Test"}}).Error
	case m.RoleCompany:
		_, err := CreateTestCompany(db, user.ID, companyStatus)
		return user, err
	}
	return user, nil
}

// CreateTestCompany inserts a company for owner with the given status.
func CreateTestCompany(db *DBinstanceStruct, owner uuid.UUID, status string) (m.Company, error) {
	now := time.Now().UTC()
	company := m.NewCompany(owner, m.EditableCompanyInfo{Name: "Company " + owner.String()[:8]}, now)
	if status == m.CompanyApproved || status == m.CompanySuspended {
		change, err := company.Approve(now, TestAdminUser.ID)
		if err != nil {
			return company, err
		}
		company.History = append(company.History, change)
	}
	if status == m.CompanySuspended {
		change, err := company.Suspend(now, TestAdminUser.ID, "test suspension")
		if err != nil {
			return company, err
		}
		company.History = append(company.History, change)
	}
	return company, db.Create(&company).Error
}

// CreateTestJob inserts a listing of company in draft, pending or active status.
func CreateTestJob(db *DBinstanceStruct, companyID uint, status string) (m.Job, error) {
	return seedJob(db, companyID, "Intern "+uuid.NewString()[:8], status, time.Now().UTC())
}

// ptr helper
func ptr[T any](v T) *T { return &v }

// CreateTestInternship walks a fresh application of student to an active
// listing of company through offer and acceptance, and stores the resulting
// internship as upcoming or active. Active internships started two weeks ago.
func CreateTestInternship(db *DBinstanceStruct, companyID uint, student uuid.UUID, status string) (m.Internship, error) {
	now := time.Now().UTC()
	job, err := CreateTestJob(db, companyID, m.JobActive)
	if err != nil {
		return m.Internship{}, err
	}

	start := now.AddDate(0, 0, -14).Truncate(24 * time.Hour)
	end := now.AddDate(0, 0, 60).Truncate(24 * time.Hour)
	if status == m.InternshipUpcoming {
		start = now.AddDate(0, 0, 7).Truncate(24 * time.Hour)
		end = now.AddDate(0, 0, 90).Truncate(24 * time.Hour)
	}

	app := m.NewApplication(job.ID, student, "", nil, now)
	steps := []func() (m.StatusChange, error){
		func() (m.StatusChange, error) { return app.Shortlist(now, TestUserCompany1.ID) },
		func() (m.StatusChange, error) {
			return app.MakeOffer(m.OfferTerms{StartDate: &start, EndDate: &end, Allowance: "RM1000"}, now, TestUserCompany1.ID)
		},
		func() (m.StatusChange, error) { return app.Accept(now, student) },
	}
	for _, step := range steps {
		change, err := step()
		if err != nil {
			return m.Internship{}, err
		}
		app.History = append(app.History, change)
	}
	if err := db.Create(&app).Error; err != nil {
		return m.Internship{}, err
	}

	app.Job = &job
	internship, err := m.NewInternship(&app, now)
	if err != nil {
		return internship, err
	}
	if status == m.InternshipActive {
		change, err := internship.Start(now)
		if err != nil {
			return internship, err
		}
		internship.History = append(internship.History, change)
	}
	return internship, db.Create(&internship).Error
}
