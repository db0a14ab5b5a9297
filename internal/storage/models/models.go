package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// CustomUser 平台账号主表，Talent/Company/Recruiter均挂接于此
type CustomUser struct {
	UserID      string    `gorm:"type:char(36);primaryKey"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex:idx_users_email_unique;not null"`
	FirstName   string    `gorm:"type:varchar(255)"`
	LastName    string    `gorm:"type:varchar(255)"`
	UserType    string    `gorm:"type:varchar(50);default:'Talent'"` // Talent / Company / Recruiter
	PhoneNumber string    `gorm:"type:varchar(50)"`
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CustomUser) TableName() string {
	return "custom_users"
}

// Talent 求职者档案表
type Talent struct {
	TalentID     string         `gorm:"type:char(36);primaryKey"`
	UserID       string         `gorm:"type:char(36);uniqueIndex:idx_talents_user_unique;not null"`
	Gender       string         `gorm:"type:varchar(50)"`
	IsOpenToWork bool           `gorm:"default:false;index:idx_talents_open_to_work"`
	Residence    string         `gorm:"type:varchar(255)"`
	AboutMe      string         `gorm:"type:text"`
	JobType      string         `gorm:"type:varchar(255)"`
	JobSitting   string         `gorm:"type:varchar(255)"`
	Skills       datatypes.JSON `gorm:"type:json"` // 历史数据可能是数组或对象，读取时统一展平
	Languages    datatypes.JSON `gorm:"type:json"` // 同上
	// CV对象引用：为空表示该人才未上传CV，完全不参与CV匹配
	CVObjectKey string    `gorm:"type:varchar(1024)"`
	CVFileName  string    `gorm:"type:varchar(255)"`
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	User *CustomUser `gorm:"foreignKey:UserID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Talent) TableName() string {
	return "talents"
}

// HasCV 判断该人才是否有CV引用（硬性资格门槛之一）
func (t *Talent) HasCV() bool {
	return t.CVObjectKey != ""
}

// Qualifications 返回 skills ∪ languages 的归一化序列（小写、去空白）。
// 历史数据中这两列既可能是JSON数组也可能是JSON对象（取对象的值），
// 在数据访问边界统一展平成序列，评分器只见到一种形态。
func (t *Talent) Qualifications() []string {
	quals := append(flattenJSONStringList(t.Skills), flattenJSONStringList(t.Languages)...)
	out := make([]string, 0, len(quals))
	for _, q := range quals {
		q = strings.ToLower(strings.TrimSpace(q))
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

// flattenJSONStringList 将JSON数组或JSON对象的值展平为字符串序列，非字符串元素直接丢弃
func flattenJSONStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}

	var anyValue interface{}
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return nil
	}

	var out []string
	switch v := anyValue.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case map[string]interface{}:
		// map遍历顺序随机，按key排序保证结果可复现
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := v[k].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// Company 企业档案表
type Company struct {
	CompanyID string         `gorm:"type:char(36);primaryKey"`
	UserID    string         `gorm:"type:char(36);uniqueIndex:idx_companies_user_unique;not null"`
	Name      string         `gorm:"type:varchar(255)"`
	Website   string         `gorm:"type:varchar(255)"`
	Address   string         `gorm:"type:varchar(255)"`
	Divisions datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	User *CustomUser `gorm:"foreignKey:UserID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Company) TableName() string {
	return "companies"
}

// Recruiter 招聘官档案表，隶属于某个Company
type Recruiter struct {
	RecruiterID string    `gorm:"type:char(36);primaryKey"`
	UserID      string    `gorm:"type:char(36);uniqueIndex:idx_recruiters_user_unique;not null"`
	CompanyID   *string   `gorm:"type:char(36);index:idx_recruiters_company_id"`
	Division    string    `gorm:"type:varchar(255)"`
	Position    string    `gorm:"type:varchar(255)"`
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	User    *CustomUser `gorm:"foreignKey:UserID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Company *Company    `gorm:"foreignKey:CompanyID;references:CompanyID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (Recruiter) TableName() string {
	return "recruiters"
}

// Job 岗位信息表
type Job struct {
	JobID       string  `gorm:"type:char(36);primaryKey"`
	Title       string  `gorm:"type:varchar(255);not null"`
	CompanyID   *string `gorm:"type:char(36);index:idx_jobs_company_id"`
	RecruiterID *string `gorm:"type:char(36);index:idx_jobs_recruiter_id"`
	Description string  `gorm:"type:text"`
	Location    string  `gorm:"type:varchar(255)"`
	// Requirements 是历史遗留的变体字段：数组、逗号分隔字符串或分类映射，
	// 由 matching.NormalizeRequirements 在边界处统一归一化
	Requirements datatypes.JSON  `gorm:"type:json"`
	Salary       *float64        `gorm:"type:float"`
	JobType      string          `gorm:"type:varchar(200)"`
	JobSitting   string          `gorm:"type:varchar(255)"` // Office / Remote / Hybrid / Other
	Division     string          `gorm:"type:varchar(200)"`
	EndDate      *datatypes.Date `gorm:"type:date"`
	IsRelevant   bool            `gorm:"default:false;index:idx_jobs_is_relevant"`
	CreatedAt    time.Time       `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt    time.Time       `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Company   *Company   `gorm:"foreignKey:CompanyID;references:CompanyID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Recruiter *Recruiter `gorm:"foreignKey:RecruiterID;references:RecruiterID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (Job) TableName() string {
	return "jobs"
}

// IsActive 判断岗位在给定日期是否仍处于激活状态（is_relevant且未过截止日）
func (j *Job) IsActive(today time.Time) bool {
	if !j.IsRelevant {
		return false
	}
	if j.EndDate == nil {
		return false
	}
	endDate := time.Time(*j.EndDate)
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	return !endDate.Before(todayDate)
}

// TalentNotificationLog 人才通知台账：记录某(talent, job)对已触发过通知。
// 复合唯一索引是幂等性的唯一权威，行只写入一次，之后不更新不删除。
type TalentNotificationLog struct {
	LogID     uint64    `gorm:"primaryKey;autoIncrement"`
	TalentID  string    `gorm:"type:char(36);not null;uniqueIndex:uq_tnl_talent_job,priority:1"`
	JobID     string    `gorm:"type:char(36);not null;uniqueIndex:uq_tnl_talent_job,priority:2;index:idx_tnl_job_id"`
	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`

	Talent *Talent `gorm:"foreignKey:TalentID;references:TalentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Job    *Job    `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (TalentNotificationLog) TableName() string {
	return "talent_notification_logs"
}
