package appserver

// Client request methods.
const (
	MethodThreadStart            = "thread/start"
	MethodThreadResume           = "thread/resume"
	MethodThreadFork             = "thread/fork"
	MethodThreadRead             = "thread/read"
	MethodThreadList             = "thread/list"
	MethodThreadLoadedList       = "thread/loaded/list"
	MethodThreadArchive          = "thread/archive"
	MethodThreadRollback         = "thread/rollback"
	MethodTurnStart              = "turn/start"
	MethodTurnInterrupt          = "turn/interrupt"
	MethodReviewStart            = "review/start"
	MethodModelList              = "model/list"
	MethodCollaborationModeList  = "collaborationMode/list"
	MethodSkillsList             = "skills/list"
	MethodSkillsConfigWrite      = "skills/config/write"
	MethodConfigRead             = "config/read"
	MethodConfigValueWrite       = "config/value/write"
	MethodConfigBatchWrite       = "config/batchWrite"
	MethodConfigRequirementsRead = "configRequirements/read"
	MethodAccountRead            = "account/read"
	MethodAccountRateLimitsRead  = "account/rateLimits/read"
	MethodAccountLoginStart      = "account/login/start"
	MethodAccountLoginCancel     = "account/login/cancel"
	MethodAccountLogout          = "account/logout"
	MethodFeedbackUpload         = "feedback/upload"
	MethodMCPServerOAuthLogin    = "mcpServer/oauth/login"
	MethodMCPServerConfigReload  = "config/mcpServer/reload"
	MethodMCPServerStatusList    = "mcpServerStatus/list"
	MethodCommandExec            = "command/exec"
)

// Server-initiated request methods.
const (
	RequestCommandExecutionApproval = "item/commandExecution/requestApproval"
	RequestFileChangeApproval       = "item/fileChange/requestApproval"
	RequestToolUserInput            = "item/tool/requestUserInput"
	RequestApplyPatchApproval       = "applyPatchApproval"
	RequestExecCommandApproval      = "execCommandApproval"
)

// Server notification methods.
const (
	NotifyError                        = "error"
	NotifyAccountUpdated               = "account/updated"
	NotifyAccountRateLimitsUpdated     = "account/rateLimits/updated"
	NotifyAccountLoginCompleted        = "account/login/completed"
	NotifyMCPServerOAuthLoginCompleted = "mcpServer/oauthLogin/completed"
	NotifyDeprecationNotice            = "deprecationNotice"
	NotifyConfigWarning                = "configWarning"
	NotifyWorldWritableWarning         = "windows/worldWritableWarning"
	NotifyThreadStarted                = "thread/started"
	NotifyThreadTokenUsageUpdated      = "thread/tokenUsage/updated"
	NotifyThreadCompacted              = "thread/compacted"
	NotifyTurnStarted                  = "turn/started"
	NotifyTurnCompleted                = "turn/completed"
	NotifyTurnDiffUpdated              = "turn/diff/updated"
	NotifyTurnPlanUpdated              = "turn/plan/updated"
	NotifyItemStarted                  = "item/started"
	NotifyItemCompleted                = "item/completed"
	NotifyRawResponseItemCompleted     = "rawResponseItem/completed"
	NotifyAgentMessageDelta            = "item/agentMessage/delta"
	NotifyCommandOutputDelta           = "item/commandExecution/outputDelta"
	NotifyCommandTerminalInteraction   = "item/commandExecution/terminalInteraction"
	NotifyFileChangeOutputDelta        = "item/fileChange/outputDelta"
	NotifyMCPToolCallProgress          = "item/mcpToolCall/progress"
	NotifyReasoningSummaryTextDelta    = "item/reasoning/summaryTextDelta"
	NotifyReasoningSummaryPartAdded    = "item/reasoning/summaryPartAdded"
	NotifyReasoningTextDelta           = "item/reasoning/textDelta"
)
