package handlers

import (
	"encoding/json"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
)

// commands maps wire names to fresh command values. The node gateway
// and gsctl both decode submissions through this table.
var commands = map[string]func() Command{
	"register_agent":              func() Command { return &RegisterAgent{} },
	"update_agent_service":        func() Command { return &UpdateAgentService{} },
	"activate_agent":              func() Command { return &ActivateAgent{} },
	"deactivate_agent":            func() Command { return &DeactivateAgent{} },
	"verify_agent":                func() Command { return &VerifyAgent{} },
	"revoke_verification":         func() Command { return &RevokeVerification{} },
	"create_replication_template": func() Command { return &CreateReplicationTemplate{} },
	"replicate_agent":             func() Command { return &ReplicateAgent{} },
	"update_a2a_status":           func() Command { return &UpdateA2AStatus{} },

	"create_work_order":    func() Command { return &CreateWorkOrder{} },
	"open_work_order":      func() Command { return &OpenWorkOrder{} },
	"fund_escrow":          func() Command { return &FundEscrow{} },
	"submit_work_delivery": func() Command { return &SubmitWorkDelivery{} },
	"start_review":         func() Command { return &StartReview{} },
	"approve_delivery":     func() Command { return &ApproveDelivery{} },
	"release_payment":      func() Command { return &ReleasePayment{} },
	"cancel_work_order":    func() Command { return &CancelWorkOrder{} },

	"create_service_auction": func() Command { return &CreateServiceAuction{} },
	"place_auction_bid":      func() Command { return &PlaceAuctionBid{} },
	"end_auction":            func() Command { return &EndAuction{} },
	"settle_auction":         func() Command { return &SettleAuction{} },
	"cancel_auction":         func() Command { return &CancelAuction{} },

	"initiate_negotiation":     func() Command { return &InitiateNegotiation{} },
	"make_counter_offer":       func() Command { return &MakeCounterOffer{} },
	"accept_offer":             func() Command { return &AcceptOffer{} },
	"reject_offer":             func() Command { return &RejectOffer{} },
	"check_negotiation_expiry": func() Command { return &CheckNegotiationExpiry{} },

	"file_dispute":            func() Command { return &FileDispute{} },
	"submit_dispute_evidence": func() Command { return &SubmitDisputeEvidence{} },
	"assign_moderator":        func() Command { return &AssignModerator{} },
	"verify_dispute_evidence": func() Command { return &VerifyDisputeEvidence{} },
	"resolve_dispute":         func() Command { return &ResolveDispute{} },
	"escalate_dispute":        func() Command { return &EscalateDispute{} },
	"close_dispute":           func() Command { return &CloseDispute{} },

	"create_channel":       func() Command { return &CreateChannel{} },
	"send_channel_message": func() Command { return &SendChannelMessage{} },
	"create_a2a_session":   func() Command { return &CreateA2ASession{} },
	"send_a2a_message":     func() Command { return &SendA2AMessage{} },
	"close_a2a_session":    func() Command { return &CloseA2ASession{} },

	"provision_market_analytics": func() Command { return &ProvisionMarketAnalytics{} },
	"set_top_agents":             func() Command { return &SetTopAgents{} },
	"update_agent_analytics":     func() Command { return &UpdateAgentAnalytics{} },
}

// CommandNames lists the wire names, for discovery endpoints.
func CommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	return names
}

// Decode builds the named command from its JSON parameters.
func Decode(name string, params []byte) (Command, error) {
	factory, ok := commands[name]
	if !ok {
		return nil, gserr.Newf(gserr.InvalidValue, "unknown command %q", name)
	}
	cmd := factory()
	if len(params) > 0 {
		if err := json.Unmarshal(params, cmd); err != nil {
			return nil, gserr.Newf(gserr.InvalidValue, "decode %s: %v", name, err)
		}
	}
	return cmd, nil
}
