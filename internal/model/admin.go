package model

import "time"

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
	// RoleFamily is the role carried by family identities.
	RoleFamily Role = "family"
)

// AdminRoles lists the roles an admin account may hold.
var AdminRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleModerator}

func (r Role) IsAdmin() bool {
	for _, ar := range AdminRoles {
		if r == ar {
			return true
		}
	}
	return false
}

type Permission string

// The permission table shared by admin accounts, tokens and seeding.
const (
	PermManageChurches       Permission = "manage_churches"
	PermManageMassTimings    Permission = "manage_mass_timings"
	PermManageNews           Permission = "manage_news"
	PermManageGallery        Permission = "manage_gallery"
	PermManageNotifications  Permission = "manage_notifications"
	PermManagePrayerRequests Permission = "manage_prayer_requests"
	PermManageThanksgivings  Permission = "manage_thanksgivings"
	PermManageVenda          Permission = "manage_venda"
	PermManageBloodBank      Permission = "manage_blood_bank"
	PermManageFamilyUnits    Permission = "manage_family_units"
	PermManageCommittee      Permission = "manage_committee"
	PermManageDocuments      Permission = "manage_documents"
	PermManageLiveStreams    Permission = "manage_live_streams"
	PermManageHeroSlider     Permission = "manage_hero_slider"
	PermManageSocialMedia    Permission = "manage_social_media"
	PermManageAdmins         Permission = "manage_admins"
	PermManageContacts       Permission = "manage_contacts"
)

var AllPermissions = []Permission{
	PermManageChurches,
	PermManageMassTimings,
	PermManageNews,
	PermManageGallery,
	PermManageNotifications,
	PermManagePrayerRequests,
	PermManageThanksgivings,
	PermManageVenda,
	PermManageBloodBank,
	PermManageFamilyUnits,
	PermManageCommittee,
	PermManageDocuments,
	PermManageLiveStreams,
	PermManageHeroSlider,
	PermManageSocialMedia,
	PermManageAdmins,
	PermManageContacts,
}

func (p Permission) Valid() bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// Admin is a staff account.
type Admin struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Role         Role         `json:"role"`
	Permissions  []Permission `json:"permissions"`
	Active       bool         `json:"active"`
	LastLoginAt  *time.Time   `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}
