package feishu

import (
	"net/http"

	"github.com/agentstation/orgsync/pkg/errors"
)

const service = "feishu"

// response is the envelope shared by every Feishu open API response.
type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Err implements transport.Envelope.
func (r *response) Err() error {
	if r.Code == 0 {
		return nil
	}
	return &errors.APIError{
		Service:    service,
		StatusCode: http.StatusOK,
		Code:       r.Code,
		Message:    r.Msg,
	}
}

type tokenResponse struct {
	response
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

type tenantResponse struct {
	response
	Data struct {
		Tenant struct {
			Name string `json:"name"`
		} `json:"tenant"`
	} `json:"data"`
}

type apiDepartment struct {
	OpenDepartmentID   string `json:"open_department_id"`
	Name               string `json:"name"`
	ParentDepartmentID string `json:"parent_department_id"`
	MemberCount        int    `json:"member_count"`
}

type departmentResponse struct {
	response
	Data struct {
		Department apiDepartment `json:"department"`
	} `json:"data"`
}

type departmentPage struct {
	response
	Data struct {
		Items     []apiDepartment `json:"items"`
		HasMore   bool            `json:"has_more"`
		PageToken string          `json:"page_token"`
	} `json:"data"`
}

type apiUser struct {
	UserID          string   `json:"user_id"`
	OpenID          string   `json:"open_id"`
	UnionID         string   `json:"union_id"`
	Name            string   `json:"name"`
	EnterpriseEmail string   `json:"enterprise_email"`
	Mobile          string   `json:"mobile"`
	EmployeeNo      string   `json:"employee_no"`
	JobTitle        string   `json:"job_title"`
	DepartmentIDs   []string `json:"department_ids"`
	Status          struct {
		IsActivated bool `json:"is_activated"`
		IsFrozen    bool `json:"is_frozen"`
		IsResigned  bool `json:"is_resigned"`
	} `json:"status"`
}

type userPage struct {
	response
	Data struct {
		Items     []apiUser `json:"items"`
		HasMore   bool      `json:"has_more"`
		PageToken string    `json:"page_token"`
	} `json:"data"`
}
