package ruoyiapi

import (
	"net/http"

	"github.com/agentstation/orgsync/pkg/errors"
)

const (
	service = "ruoyi"
	codeOK  = 200
)

// result is the envelope of every RuoYi response.
type result struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Err implements transport.Envelope.
func (r *result) Err() error {
	if r.Code == codeOK {
		return nil
	}
	err := &errors.APIError{Service: service, StatusCode: http.StatusOK, Code: r.Code, Message: r.Msg}
	if r.Code == http.StatusUnauthorized || r.Code == http.StatusForbidden {
		err.StatusCode = r.Code
	}
	return err
}

type loginResult struct {
	result
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

type dept struct {
	DeptID       int64  `json:"deptId,omitempty"`
	ParentID     int64  `json:"parentId"`
	Ancestors    string `json:"ancestors,omitempty"`
	DeptName     string `json:"deptName"`
	OrderNum     int    `json:"orderNum"`
	Level        int    `json:"level"`
	Status       string `json:"status"`
	DelFlag      string `json:"delFlag,omitempty"`
	FeishuDeptID string `json:"feishuDeptId,omitempty"`
}

type deptList struct {
	result
	Data []dept `json:"data"`
}

type deptResult struct {
	result
	Data dept `json:"data"`
}

type user struct {
	UserID      int64   `json:"userId,omitempty"`
	DeptID      int64   `json:"deptId"`
	UserName    string  `json:"userName"`
	NickName    string  `json:"nickName"`
	Email       string  `json:"email"`
	Phonenumber string  `json:"phonenumber"`
	Sex         string  `json:"sex"`
	Password    string  `json:"password,omitempty"`
	Status      string  `json:"status"`
	DelFlag     string  `json:"delFlag,omitempty"`
	RoleIDs     []int64 `json:"roleIds,omitempty"`
	Remark      string  `json:"remark"`
}

type userPage struct {
	result
	Total int    `json:"total"`
	Rows  []user `json:"rows"`
}
