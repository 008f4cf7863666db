package reward

import "tsmarket/pkg/errutil"

var (
	ErrRewardNotFound = errutil.NotFound("reward not found", nil, errutil.WithReason("reward_not_found"))
	ErrNotEligible    = errutil.UnprocessableEntity("reward is not claimable at your level", nil, errutil.WithReason("not_eligible"))
	ErrAlreadyClaimed = errutil.Conflict("reward already claimed", nil, errutil.WithReason("already_claimed"))
	ErrLevelTaken     = errutil.Conflict("a reward already exists for this level", nil, errutil.WithReason("level_taken"))
	ErrInvalidReward  = errutil.BadRequest("invalid reward", nil, errutil.WithReason("invalid_reward"))
)
