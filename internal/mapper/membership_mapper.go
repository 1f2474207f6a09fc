package mapper

import (
	"club-membership-be/internal/entity"
	"club-membership-be/internal/model"

	"gorm.io/datatypes"
)

type MembershipMapper struct{}

func NewMembershipMapper() *MembershipMapper {
	return &MembershipMapper{}
}

func (m *MembershipMapper) RequestToEntity(r *model.MembershipRequest) *entity.MembershipRequest {
	if r == nil {
		return nil
	}
	return &entity.MembershipRequest{
		Id:          r.Id,
		StudentId:   r.StudentId,
		ClubId:      r.ClubId,
		Reason:      r.Reason,
		FullName:    r.FullName,
		Email:       r.Email,
		Phone:       r.Phone,
		Status:      entity.RequestStatus(r.Status),
		PaymentId:   r.PaymentId,
		Amount:      r.Amount,
		Note:        r.Note,
		RequestDate: r.RequestDate,
		DecidedAt:   r.DecidedAt,
		Version:     r.Version,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (m *MembershipMapper) RequestToModel(r *entity.MembershipRequest) *model.MembershipRequest {
	if r == nil {
		return nil
	}
	return &model.MembershipRequest{
		Id:          r.Id,
		StudentId:   r.StudentId,
		ClubId:      r.ClubId,
		Reason:      r.Reason,
		FullName:    r.FullName,
		Email:       r.Email,
		Phone:       r.Phone,
		Status:      string(r.Status),
		PaymentId:   r.PaymentId,
		Amount:      r.Amount,
		Note:        r.Note,
		RequestDate: r.RequestDate,
		DecidedAt:   r.DecidedAt,
		Version:     r.Version,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (m *MembershipMapper) PaymentToEntity(p *model.Payment) *entity.Payment {
	if p == nil {
		return nil
	}
	return &entity.Payment{
		Id:             p.Id,
		RequestId:      p.RequestId,
		Status:         entity.PaymentStatus(p.Status),
		Amount:         p.Amount,
		PaidDate:       p.PaidDate,
		Method:         p.Method,
		GatewayRef:     p.GatewayRef,
		CheckoutUrl:    p.CheckoutUrl,
		Attempts:       p.Attempts,
		GatewayPayload: []byte(p.GatewayPayload),
		Version:        p.Version,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (m *MembershipMapper) PaymentToModel(p *entity.Payment) *model.Payment {
	if p == nil {
		return nil
	}
	var payload datatypes.JSON
	if len(p.GatewayPayload) > 0 {
		payload = datatypes.JSON(p.GatewayPayload)
	}
	return &model.Payment{
		Id:             p.Id,
		RequestId:      p.RequestId,
		Status:         string(p.Status),
		Amount:         p.Amount,
		PaidDate:       p.PaidDate,
		Method:         p.Method,
		GatewayRef:     p.GatewayRef,
		CheckoutUrl:    p.CheckoutUrl,
		Attempts:       p.Attempts,
		GatewayPayload: payload,
		Version:        p.Version,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (m *MembershipMapper) MembershipToEntity(s *model.Membership) *entity.Membership {
	if s == nil {
		return nil
	}
	return &entity.Membership{
		Id:              s.Id,
		StudentId:       s.StudentId,
		ClubId:          s.ClubId,
		RequestId:       s.RequestId,
		Status:          entity.MembershipStatus(s.Status),
		JoinDate:        s.JoinDate,
		Note:            s.Note,
		StatusChangedAt: s.StatusChangedAt,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (m *MembershipMapper) MembershipToModel(s *entity.Membership) *model.Membership {
	if s == nil {
		return nil
	}
	return &model.Membership{
		Id:              s.Id,
		StudentId:       s.StudentId,
		ClubId:          s.ClubId,
		RequestId:       s.RequestId,
		Status:          string(s.Status),
		JoinDate:        s.JoinDate,
		Note:            s.Note,
		StatusChangedAt: s.StatusChangedAt,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
