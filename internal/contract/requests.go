package contract

import (
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/service"
)

type SubNodeRequest struct {
	// ID keeps an existing sub-node (and its lock) across an update.
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Tier        string `json:"tier"`
	Description string `json:"description,omitempty"`
}

type CreateNodeRequest struct {
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	SubNodes        []SubNodeRequest `json:"subNodes"`
	AssignedUserIDs []string         `json:"assignedUserIds"`
}

// UpdateNodeRequest changes only the fields that are present.
type UpdateNodeRequest struct {
	Name            *string           `json:"name,omitempty"`
	Description     *string           `json:"description,omitempty"`
	SubNodes        *[]SubNodeRequest `json:"subNodes,omitempty"`
	AssignedUserIDs *[]string         `json:"assignedUserIds,omitempty"`
}

type EngageRequest struct {
	NodeID    string `json:"nodeId"`
	SubNodeID string `json:"subNodeId"`
}

type ProvisionUserRequest struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func (r CreateNodeRequest) ToInput() service.NodeInput {
	return service.NodeInput{
		Name:            r.Name,
		Description:     r.Description,
		SubNodes:        toSubNodeInputs(r.SubNodes),
		AssignedUserIDs: r.AssignedUserIDs,
	}
}

func (r UpdateNodeRequest) ToPatch() service.NodePatch {
	p := service.NodePatch{
		Name:            r.Name,
		Description:     r.Description,
		AssignedUserIDs: r.AssignedUserIDs,
	}
	if r.SubNodes != nil {
		subs := toSubNodeInputs(*r.SubNodes)
		p.SubNodes = &subs
	}
	return p
}

// ToUser parses the role. An unknown role is INVALID_INPUT.
func (r ProvisionUserRequest) ToUser() (*domain.User, error) {
	role, err := domain.ParseRole(r.Role)
	if err != nil {
		return nil, domain.Fail(domain.CodeInvalidInput, "%v", err)
	}
	return &domain.User{ID: r.ID, DisplayName: r.DisplayName, Role: role}, nil
}

func toSubNodeInputs(in []SubNodeRequest) []service.SubNodeInput {
	out := make([]service.SubNodeInput, 0, len(in))
	for _, s := range in {
		tier, err := domain.ParseTier(s.Tier)
		if err != nil {
			// Left as given so node validation reports it.
			tier = domain.SubNodeTier(s.Tier)
		}
		out = append(out, service.SubNodeInput{
			ID:          s.ID,
			Name:        s.Name,
			Tier:        tier,
			Description: s.Description,
		})
	}
	return out
}
