package learning

type CourseStatus string

const (
	CourseStatusPending  CourseStatus = "pending"
	CourseStatusApproved CourseStatus = "approved"
	CourseStatusRejected CourseStatus = "rejected"
)

type Category string

const (
	CategoryDevelopment         Category = "development"
	CategoryBusiness            Category = "business"
	CategoryDesign              Category = "design"
	CategoryMarketing           Category = "marketing"
	CategoryITSoftware          Category = "it_software"
	CategoryPersonalDevelopment Category = "personal_development"
	CategoryPhotography         Category = "photography"
	CategoryMusic               Category = "music"
	CategoryOther               Category = "other"
)

var Categories = []Category{
	CategoryDevelopment,
	CategoryBusiness,
	CategoryDesign,
	CategoryMarketing,
	CategoryITSoftware,
	CategoryPersonalDevelopment,
	CategoryPhotography,
	CategoryMusic,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
	LevelAllLevels    Level = "all_levels"
)

func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelAllLevels:
		return true
	default:
		return false
	}
}

type LessonType string

const (
	LessonTypeVideo    LessonType = "video"
	LessonTypeDocument LessonType = "document"
)

func (t LessonType) Valid() bool {
	return t == LessonTypeVideo || t == LessonTypeDocument
}

type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
)
