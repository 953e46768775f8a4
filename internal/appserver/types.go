package appserver

import (
	"encoding/json"
	"fmt"
)

// ClientInfo identifies this client in the initialize handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Version string `json:"version"`
}

// DefaultClientInfo is sent when the caller supplies none.
var DefaultClientInfo = ClientInfo{
	Name:    "codex-toolloop",
	Title:   "Codex ToolLoop",
	Version: "0.1.0",
}

// InitializeParams is the payload of the initialize request.
type InitializeParams struct {
	ClientInfo ClientInfo `json:"clientInfo"`
}

// InitializeResponse is the result of the initialize request.
type InitializeResponse struct {
	UserAgent string `json:"userAgent,omitempty"`
}

// Thread is a persisted conversation.
type Thread struct {
	ID            string          `json:"id"`
	Preview       string          `json:"preview,omitempty"`
	ModelProvider string          `json:"modelProvider,omitempty"`
	CreatedAt     int64           `json:"createdAt,omitempty"`
	Path          string          `json:"path,omitempty"`
	Cwd           string          `json:"cwd,omitempty"`
	CLIVersion    string          `json:"cliVersion,omitempty"`
	Source        json.RawMessage `json:"source,omitempty"`
	GitInfo       json.RawMessage `json:"gitInfo,omitempty"`
	Turns         []Turn          `json:"turns,omitempty"`
}

// TurnStatus is the lifecycle state of a turn.
type TurnStatus string

const (
	TurnStatusInProgress  TurnStatus = "inProgress"
	TurnStatusCompleted   TurnStatus = "completed"
	TurnStatusInterrupted TurnStatus = "interrupted"
	TurnStatusFailed      TurnStatus = "failed"
)

// Turn is one user request and the agent work that follows it.
type Turn struct {
	ID     string            `json:"id"`
	Items  []json.RawMessage `json:"items,omitempty"`
	Status TurnStatus        `json:"status"`
	Error  *TurnError        `json:"error,omitempty"`
}

// TurnError explains why a turn failed.
type TurnError struct {
	Message           string          `json:"message"`
	CodexErrorInfo    json.RawMessage `json:"codexErrorInfo,omitempty"`
	AdditionalDetails json.RawMessage `json:"additionalDetails,omitempty"`
}

// TextElement annotates a span of a text input.
type TextElement struct {
	ByteRange   ByteRange `json:"byteRange"`
	Placeholder string    `json:"placeholder,omitempty"`
}

// ByteRange is a half-open byte span.
type ByteRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// UserInputType discriminates UserInput variants.
type UserInputType string

const (
	UserInputText       UserInputType = "text"
	UserInputImage      UserInputType = "image"
	UserInputLocalImage UserInputType = "localImage"
	UserInputSkill      UserInputType = "skill"
)

// UserInput is one element of a turn's input.
type UserInput struct {
	Type         UserInputType
	Text         string
	TextElements []TextElement
	URL          string
	Path         string
	Name         string
}

// TextInput returns a plain text input item.
func TextInput(text string) UserInput {
	return UserInput{Type: UserInputText, Text: text}
}

// ImageInput returns a remote image input item.
func ImageInput(url string) UserInput {
	return UserInput{Type: UserInputImage, URL: url}
}

// LocalImageInput returns an input item referencing an image on disk.
func LocalImageInput(path string) UserInput {
	return UserInput{Type: UserInputLocalImage, Path: path}
}

// SkillInput returns an input item invoking a skill.
func SkillInput(name, path string) UserInput {
	return UserInput{Type: UserInputSkill, Name: name, Path: path}
}

// MarshalJSON emits only the members of the variant named by Type. Text
// items always carry text_elements, empty when none were given.
func (u UserInput) MarshalJSON() ([]byte, error) {
	switch u.Type {
	case UserInputText:
		elements := u.TextElements
		if elements == nil {
			elements = []TextElement{}
		}

		return json.Marshal(struct {
			Type         UserInputType `json:"type"`
			Text         string        `json:"text"`
			TextElements []TextElement `json:"text_elements"`
		}{u.Type, u.Text, elements})
	case UserInputImage:
		return json.Marshal(struct {
			Type UserInputType `json:"type"`
			URL  string        `json:"url"`
		}{u.Type, u.URL})
	case UserInputLocalImage:
		return json.Marshal(struct {
			Type UserInputType `json:"type"`
			Path string        `json:"path"`
		}{u.Type, u.Path})
	case UserInputSkill:
		return json.Marshal(struct {
			Type UserInputType `json:"type"`
			Name string        `json:"name"`
			Path string        `json:"path"`
		}{u.Type, u.Name, u.Path})
	default:
		return nil, fmt.Errorf("unknown user input type %q", u.Type)
	}
}

// UnmarshalJSON decodes any variant.
func (u *UserInput) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type         UserInputType `json:"type"`
		Text         string        `json:"text"`
		TextElements []TextElement `json:"text_elements"`
		URL          string        `json:"url"`
		Path         string        `json:"path"`
		Name         string        `json:"name"`
	}

	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*u = UserInput(wire)

	return nil
}

// SandboxPolicyType discriminates SandboxPolicy variants.
type SandboxPolicyType string

const (
	SandboxPolicyReadOnly         SandboxPolicyType = "readOnly"
	SandboxPolicyWorkspaceWrite   SandboxPolicyType = "workspaceWrite"
	SandboxPolicyDangerFullAccess SandboxPolicyType = "dangerFullAccess"
	SandboxPolicyExternalSandbox  SandboxPolicyType = "externalSandbox"
)

// SandboxPolicy is the per-turn sandbox applied to command execution.
type SandboxPolicy struct {
	Type                SandboxPolicyType `json:"type"`
	WritableRoots       []string          `json:"writableRoots,omitempty"`
	NetworkAccess       *bool             `json:"networkAccess,omitempty"`
	ExcludeTmpdirEnvVar *bool             `json:"excludeTmpdirEnvVar,omitempty"`
	ExcludeSlashTmp     *bool             `json:"excludeSlashTmp,omitempty"`
}

// CollaborationMode selects a collaboration preset for a turn.
type CollaborationMode struct {
	Mode     string                    `json:"mode"`
	Settings CollaborationModeSettings `json:"settings"`
}

// CollaborationModeSettings carries the model settings of a collaboration mode.
type CollaborationModeSettings struct {
	Model                 string  `json:"model"`
	ReasoningEffort       *string `json:"reasoningEffort"`
	DeveloperInstructions *string `json:"developerInstructions"`
}

// ThreadStartParams is the payload of thread/start.
type ThreadStartParams struct {
	Model                 *string        `json:"model"`
	ModelProvider         *string        `json:"modelProvider"`
	Cwd                   *string        `json:"cwd"`
	ApprovalPolicy        *string        `json:"approvalPolicy"`
	Sandbox               *string        `json:"sandbox"`
	Config                map[string]any `json:"config"`
	BaseInstructions      *string        `json:"baseInstructions"`
	DeveloperInstructions *string        `json:"developerInstructions"`
	ExperimentalRawEvents bool           `json:"experimentalRawEvents"`
}

// ThreadResponse is the result of thread/start, thread/resume and thread/fork.
type ThreadResponse struct {
	Thread          Thread          `json:"thread"`
	Model           string          `json:"model,omitempty"`
	ModelProvider   string          `json:"modelProvider,omitempty"`
	Cwd             string          `json:"cwd,omitempty"`
	ApprovalPolicy  string          `json:"approvalPolicy,omitempty"`
	Sandbox         json.RawMessage `json:"sandbox,omitempty"`
	ReasoningEffort string          `json:"reasoningEffort,omitempty"`
}

// ThreadResumeParams is the payload of thread/resume.
type ThreadResumeParams struct {
	ThreadID              string            `json:"threadId"`
	History               []json.RawMessage `json:"history"`
	Path                  *string           `json:"path"`
	Model                 *string           `json:"model"`
	ModelProvider         *string           `json:"modelProvider"`
	Cwd                   *string           `json:"cwd"`
	ApprovalPolicy        *string           `json:"approvalPolicy"`
	Sandbox               *string           `json:"sandbox"`
	Config                map[string]any    `json:"config"`
	BaseInstructions      *string           `json:"baseInstructions"`
	DeveloperInstructions *string           `json:"developerInstructions"`
}

// ThreadForkParams is the payload of thread/fork.
type ThreadForkParams struct {
	ThreadID              string         `json:"threadId"`
	Path                  *string        `json:"path,omitempty"`
	Model                 *string        `json:"model,omitempty"`
	ModelProvider         *string        `json:"modelProvider,omitempty"`
	Cwd                   *string        `json:"cwd,omitempty"`
	ApprovalPolicy        *string        `json:"approvalPolicy,omitempty"`
	Sandbox               *string        `json:"sandbox,omitempty"`
	Config                map[string]any `json:"config,omitempty"`
	BaseInstructions      *string        `json:"baseInstructions,omitempty"`
	DeveloperInstructions *string        `json:"developerInstructions,omitempty"`
}

// ThreadReadParams is the payload of thread/read.
type ThreadReadParams struct {
	ThreadID     string `json:"threadId"`
	IncludeTurns bool   `json:"includeTurns"`
}

// ThreadReadResponse is the result of thread/read and thread/rollback.
type ThreadReadResponse struct {
	Thread Thread `json:"thread"`
}

// ThreadListParams is the payload of thread/list.
type ThreadListParams struct {
	Cursor         *string  `json:"cursor,omitempty"`
	Limit          *int     `json:"limit,omitempty"`
	ModelProviders []string `json:"modelProviders,omitempty"`
	Archived       *bool    `json:"archived,omitempty"`
}

// ThreadListResponse is the result of thread/list.
type ThreadListResponse struct {
	Data       []Thread `json:"data"`
	NextCursor *string  `json:"nextCursor"`
}

// ThreadLoadedListParams is the payload of thread/loaded/list.
type ThreadLoadedListParams struct {
	Cursor *string `json:"cursor,omitempty"`
	Limit  *int    `json:"limit,omitempty"`
}

// ThreadLoadedListResponse is the result of thread/loaded/list.
type ThreadLoadedListResponse struct {
	Data       []string `json:"data"`
	NextCursor *string  `json:"nextCursor"`
}

// ThreadArchiveParams is the payload of thread/archive.
type ThreadArchiveParams struct {
	ThreadID string `json:"threadId"`
}

// ThreadRollbackParams is the payload of thread/rollback.
type ThreadRollbackParams struct {
	ThreadID string `json:"threadId"`
	NumTurns int    `json:"numTurns"`
}

// TurnStartParams is the payload of turn/start.
type TurnStartParams struct {
	ThreadID          string             `json:"threadId"`
	Input             []UserInput        `json:"input"`
	Cwd               *string            `json:"cwd"`
	ApprovalPolicy    *string            `json:"approvalPolicy"`
	SandboxPolicy     *SandboxPolicy     `json:"sandboxPolicy"`
	Model             *string            `json:"model"`
	Effort            *string            `json:"effort"`
	Summary           *string            `json:"summary"`
	OutputSchema      any                `json:"outputSchema"`
	CollaborationMode *CollaborationMode `json:"collaborationMode"`
}

// TurnResponse is the result of turn/start.
type TurnResponse struct {
	Turn Turn `json:"turn"`
}

// TurnInterruptParams is the payload of turn/interrupt.
type TurnInterruptParams struct {
	ThreadID string `json:"threadId"`
	TurnID   string `json:"turnId"`
}

// ReviewTarget selects what review/start reviews.
type ReviewTarget struct {
	Type         string `json:"type"`
	Branch       string `json:"branch,omitempty"`
	SHA          string `json:"sha,omitempty"`
	Title        string `json:"title,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// ReviewStartParams is the payload of review/start.
type ReviewStartParams struct {
	ThreadID string       `json:"threadId"`
	Target   ReviewTarget `json:"target"`
	Delivery *string      `json:"delivery,omitempty"`
}

// ReviewStartResponse is the result of review/start.
type ReviewStartResponse struct {
	Turn           Turn   `json:"turn"`
	ReviewThreadID string `json:"reviewThreadId"`
}

// ListParams pages through list methods.
type ListParams struct {
	Cursor *string `json:"cursor,omitempty"`
	Limit  *int    `json:"limit,omitempty"`
}

// ReasoningEffortOption describes one effort level a model supports.
type ReasoningEffortOption struct {
	ReasoningEffort string `json:"reasoningEffort"`
	Description     string `json:"description"`
}

// Model is one entry of model/list.
type Model struct {
	ID                        string                  `json:"id"`
	Model                     string                  `json:"model"`
	DisplayName               string                  `json:"displayName"`
	Description               string                  `json:"description"`
	SupportedReasoningEfforts []ReasoningEffortOption `json:"supportedReasoningEfforts"`
	DefaultReasoningEffort    string                  `json:"defaultReasoningEffort"`
	IsDefault                 bool                    `json:"isDefault"`
}

// ModelListResponse is the result of model/list.
type ModelListResponse struct {
	Data       []Model `json:"data"`
	NextCursor *string `json:"nextCursor"`
}

// CollaborationModeMask is one preset of collaborationMode/list.
type CollaborationModeMask struct {
	Name                  string  `json:"name"`
	Mode                  *string `json:"mode,omitempty"`
	Model                 *string `json:"model,omitempty"`
	ReasoningEffort       *string `json:"reasoningEffort,omitempty"`
	DeveloperInstructions *string `json:"developerInstructions,omitempty"`
}

// CollaborationModeListResponse is the result of collaborationMode/list.
type CollaborationModeListResponse struct {
	Data []CollaborationModeMask `json:"data"`
}

// SkillsListParams is the payload of skills/list.
type SkillsListParams struct {
	Cwds        []string `json:"cwds,omitempty"`
	ForceReload bool     `json:"forceReload,omitempty"`
}

// Skill describes one installed skill.
type Skill struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Scope       string `json:"scope,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// SkillsListEntry groups the skills visible from one cwd.
type SkillsListEntry struct {
	Cwd    string            `json:"cwd"`
	Skills []Skill           `json:"skills"`
	Errors []json.RawMessage `json:"errors,omitempty"`
}

// SkillsListResponse is the result of skills/list.
type SkillsListResponse struct {
	Data []SkillsListEntry `json:"data"`
}

// SkillsConfigWriteParams is the payload of skills/config/write.
type SkillsConfigWriteParams struct {
	Path    string `json:"path"`
	Enabled bool   `json:"enabled"`
}

// SkillsConfigWriteResponse is the result of skills/config/write.
type SkillsConfigWriteResponse struct {
	EffectiveEnabled bool `json:"effectiveEnabled"`
}

// ConfigReadParams is the payload of config/read.
type ConfigReadParams struct {
	IncludeLayers bool    `json:"includeLayers"`
	Cwd           *string `json:"cwd,omitempty"`
}

// ConfigReadResponse is the result of config/read.
type ConfigReadResponse struct {
	Config  json.RawMessage `json:"config"`
	Origins json.RawMessage `json:"origins,omitempty"`
	Layers  json.RawMessage `json:"layers,omitempty"`
}

// MergeStrategy controls how config/value/write combines values.
type MergeStrategy string

const (
	MergeReplace MergeStrategy = "replace"
	MergeUpsert  MergeStrategy = "upsert"
)

// ConfigEdit is one key path write.
type ConfigEdit struct {
	KeyPath       string        `json:"keyPath"`
	Value         any           `json:"value"`
	MergeStrategy MergeStrategy `json:"mergeStrategy"`
}

// ConfigValueWriteParams is the payload of config/value/write.
type ConfigValueWriteParams struct {
	ConfigEdit

	FilePath        *string `json:"filePath,omitempty"`
	ExpectedVersion *string `json:"expectedVersion,omitempty"`
}

// ConfigBatchWriteParams is the payload of config/batchWrite.
type ConfigBatchWriteParams struct {
	Edits           []ConfigEdit `json:"edits"`
	FilePath        *string      `json:"filePath,omitempty"`
	ExpectedVersion *string      `json:"expectedVersion,omitempty"`
}

// ConfigWriteResponse is the result of config writes.
type ConfigWriteResponse struct {
	Status             string          `json:"status"`
	Version            string          `json:"version"`
	FilePath           string          `json:"filePath"`
	OverriddenMetadata json.RawMessage `json:"overriddenMetadata,omitempty"`
}

// ConfigRequirementsReadResponse is the result of configRequirements/read.
type ConfigRequirementsReadResponse struct {
	Requirements json.RawMessage `json:"requirements"`
}

// AccountReadParams is the payload of account/read.
type AccountReadParams struct {
	RefreshToken bool `json:"refreshToken"`
}

// Account is the authenticated account, if any.
type Account struct {
	Type     string `json:"type"`
	Email    string `json:"email,omitempty"`
	PlanType string `json:"planType,omitempty"`
}

// AccountReadResponse is the result of account/read.
type AccountReadResponse struct {
	Account            *Account `json:"account"`
	RequiresOpenaiAuth bool     `json:"requiresOpenaiAuth"`
}

// RateLimitsResponse is the result of account/rateLimits/read.
type RateLimitsResponse struct {
	RateLimits json.RawMessage `json:"rateLimits"`
}

// LoginParams is the payload of account/login/start.
type LoginParams struct {
	Type   string `json:"type"`
	APIKey string `json:"apiKey,omitempty"`
}

// LoginResponse is the result of account/login/start.
type LoginResponse struct {
	Type    string `json:"type"`
	LoginID string `json:"loginId,omitempty"`
	AuthURL string `json:"authUrl,omitempty"`
}

// LoginCancelParams is the payload of account/login/cancel.
type LoginCancelParams struct {
	LoginID string `json:"loginId"`
}

// LoginCancelResponse is the result of account/login/cancel.
type LoginCancelResponse struct {
	Status string `json:"status"`
}

// FeedbackUploadParams is the payload of feedback/upload.
type FeedbackUploadParams struct {
	Classification string  `json:"classification"`
	Reason         *string `json:"reason,omitempty"`
	ThreadID       *string `json:"threadId,omitempty"`
	IncludeLogs    bool    `json:"includeLogs"`
}

// FeedbackUploadResponse is the result of feedback/upload.
type FeedbackUploadResponse struct {
	ThreadID string `json:"threadId"`
}

// MCPOAuthLoginParams is the payload of mcpServer/oauth/login.
type MCPOAuthLoginParams struct {
	Name        string   `json:"name"`
	Scopes      []string `json:"scopes,omitempty"`
	TimeoutSecs *int     `json:"timeoutSecs,omitempty"`
}

// MCPOAuthLoginResponse is the result of mcpServer/oauth/login.
type MCPOAuthLoginResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
}

// CommandExecParams is the payload of command/exec.
type CommandExecParams struct {
	Command       []string       `json:"command"`
	TimeoutMs     *int64         `json:"timeoutMs,omitempty"`
	Cwd           *string        `json:"cwd,omitempty"`
	SandboxPolicy *SandboxPolicy `json:"sandboxPolicy,omitempty"`
}

// CommandExecResponse is the result of command/exec.
type CommandExecResponse struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}
