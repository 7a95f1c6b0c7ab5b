package devices

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path, token, fingerprint string, body any) error
	POST(path string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	AdminToken() (string, error)
	MintToken(identityID, role string) (string, error)
	SetIdentity(identityID, token string)
	SetFingerprint(fp string)
	Fingerprint() string
}

// RegisterSteps registers onboarding and device enrollment steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &deviceSteps{tc: tc}

	ctx.Step(`^an approved employee in department "([^"]*)"$`, steps.approvedEmployee)
	ctx.Step(`^the employee uses a new device$`, steps.useNewDevice)
	ctx.Step(`^the employee enrolls the device$`, steps.enrollDevice)
	ctx.Step(`^the employee has enrolled (\d+) devices$`, steps.enrollDevices)
}

type deviceSteps struct {
	tc TestContext
}

func (s *deviceSteps) approvedEmployee(ctx context.Context, department string) error {
	admin, err := s.tc.AdminToken()
	if err != nil {
		return err
	}
	err = s.tc.Do(http.MethodPost, "/v1/admin/identities", admin, "", map[string]string{
		"name":       "E2E Employee",
		"role":       "employee",
		"department": department,
	})
	if err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != http.StatusCreated {
		return fmt.Errorf("register identity: status %d", status)
	}
	raw, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	identityID := fmt.Sprint(raw)

	if err := s.tc.Do(http.MethodPost, "/v1/admin/identities/"+identityID+"/approve", admin, "", nil); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != http.StatusOK {
		return fmt.Errorf("approve identity: status %d", status)
	}

	token, err := s.tc.MintToken(identityID, "")
	if err != nil {
		return err
	}
	s.tc.SetIdentity(identityID, token)
	return nil
}

func (s *deviceSteps) useNewDevice(ctx context.Context) error {
	s.tc.SetFingerprint("e2e-" + uuid.NewString())
	return nil
}

func (s *deviceSteps) enrollDevice(ctx context.Context) error {
	return s.tc.POST("/v1/devices", map[string]string{"fingerprint": s.tc.Fingerprint()})
}

func (s *deviceSteps) enrollDevices(ctx context.Context, n int) error {
	for range n {
		if err := s.useNewDevice(ctx); err != nil {
			return err
		}
		if err := s.enrollDevice(ctx); err != nil {
			return err
		}
		if status := s.tc.GetLastResponseStatus(); status != http.StatusCreated {
			return fmt.Errorf("enroll device: status %d", status)
		}
	}
	return nil
}
