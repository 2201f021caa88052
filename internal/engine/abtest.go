package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/mailfleet/mailfleet/internal/models"
)

// TestRatio returns the share of the audience used for the A/B test.
// Small audiences test half, mid-size audiences a fifth, large audiences a
// tenth. The thresholds are fixed business policy.
func TestRatio(totalActive int) float64 {
	switch {
	case totalActive < 100:
		return 0.5
	case totalActive <= 500:
		return 0.2
	default:
		return 0.1
	}
}

// SplitSubscribers partitions the audience into group A, group B and the
// untested remainder. The split is deterministic and order-preserving:
// both groups have exactly floor(N*ratio/2) members taken from the front
// of the list, and the three slices together are the input, with nothing
// lost or duplicated.
func SplitSubscribers(subs []models.Subscriber, ratio float64) (groupA, groupB, remaining []models.Subscriber) {
	groupSize := int(math.Floor(float64(len(subs)) * ratio / 2))
	groupA = subs[:groupSize]
	groupB = subs[groupSize : 2*groupSize]
	remaining = subs[2*groupSize:]
	return groupA, groupB, remaining
}

// ABTestResult summarizes a test-phase send
type ABTestResult struct {
	GroupASent int                   `json:"group_a_sent"`
	GroupBSent int                   `json:"group_b_sent"`
	Status     models.CampaignStatus `json:"status"`
}

// SendABTest splits the audience, freezes the remainder snapshot and sends
// both variants. The snapshot is written before any email goes out: the
// rollout audience is fixed at test-send time, never re-queried from the
// live subscriber table hours later.
func (e *Engine) SendABTest(ctx context.Context, c *models.Campaign, subs []models.Subscriber) (*ABTestResult, error) {
	now := e.now()

	ratio := TestRatio(len(subs))
	groupA, groupB, remaining := SplitSubscribers(subs, ratio)

	remainingIDs := make([]string, len(remaining))
	for i, s := range remaining {
		remainingIDs[i] = s.ID
	}
	if err := e.remainders.Save(c.ID, remainingIDs); err != nil {
		return nil, fmt.Errorf("failed to freeze rollout audience: %w", err)
	}

	subjectA, fromA := variantContent(c, models.VariantA)
	sentA, okA, err := e.sendToRecipients(ctx, c, groupA, models.VariantA, subjectA, fromA, "ab_test", now)
	if err != nil {
		return nil, err
	}

	subjectB, fromB := variantContent(c, models.VariantB)
	sentB, okB, err := e.sendToRecipients(ctx, c, groupB, models.VariantB, subjectB, fromB, "ab_test", now)
	if err != nil {
		return nil, err
	}

	if !okA || !okB {
		return nil, fmt.Errorf("A/B test send incomplete: group A %d/%d, group B %d/%d",
			sentA, len(groupA), sentB, len(groupB))
	}

	return &ABTestResult{
		GroupASent: sentA,
		GroupBSent: sentB,
		Status:     models.CampaignABTesting,
	}, nil
}
